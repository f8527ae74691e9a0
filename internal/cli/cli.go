// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/gpuchain/internal/options"
)

// ParseFlags parses command line flags and returns program and chain options
func ParseFlags() (options.Program, options.Chain, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Input == "" && opts.Batch == "") {
		return opts, options.Chain{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Chain{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Chain{}, err
	}

	if opts.Batch == "" && len(args) > 0 {
		opts.Input = args[0]
	}

	chainOptions, err := createChainOptions(opts)
	if err != nil {
		return opts, options.Chain{}, err
	}
	return opts, chainOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: gpuchain [options] <RAM dump file>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg != "" && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after RAM dump file, please pass the file as last argument", arg),
			}
		}
	}
	return nil
}

var validLayouts = []string{options.LayoutAuto, options.LayoutConsole, options.LayoutArcade}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Layout = strings.ToLower(strings.TrimSpace(opts.Layout))
	if opts.Layout == "" {
		opts.Layout = options.LayoutAuto
	}

	for _, valid := range validLayouts {
		if opts.Layout == valid {
			return nil
		}
	}

	return fmt.Errorf("unsupported RAM layout: %s. Valid options: %s",
		opts.Layout, strings.Join(validLayouts, ", "))
}

// createChainOptions creates chain options based on program options
func createChainOptions(opts options.Program) (options.Chain, error) {
	start, err := ParseAddress(opts.Start)
	if err != nil {
		return options.Chain{}, fmt.Errorf("parsing start address: %w", err)
	}

	chainOptions := options.NewChain(start, opts.Layout)
	chainOptions.Decode = opts.Decode
	chainOptions.Payload = opts.Payload
	chainOptions.Verify = opts.Verify
	return chainOptions, nil
}

// ParseAddress parses a chain address. Hex values need a 0x or $ prefix,
// everything else is read as decimal. KSEG0 and KSEG1 addresses are accepted
// as they only differ from the physical address in the top byte.
func ParseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s, base = s[2:], 16
	case strings.HasPrefix(s, "$"):
		s, base = s[1:], 16
	}

	value, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address '%s': %w", s, err)
	}
	return uint32(value), nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the input RAM dump file")
	flags.StringVar(&opts.Output, "o", "", "name of the output listing file, printed on console if no name given")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically .chain.txt file naming, for example *.ram")
	flags.StringVar(&opts.Start, "start", "0", "address of the first chain node, hex values need a 0x or $ prefix")
	flags.StringVar(&opts.Layout, "ram", options.LayoutAuto, "RAM layout of the dump (auto/console/arcade), auto detects it from the file size")
	flags.BoolVar(&opts.Decode, "decode", false, "decode the GP0 commands of the block payloads")
	flags.BoolVar(&opts.Payload, "payload", false, "list the payload words of every block")
	flags.BoolVar(&opts.Verify, "verify", false, "verify the loop detection by walking the chain with an exact visited set")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
