// Package options contains the program options.
package options

import (
	"strings"

	"github.com/retroenv/gpuchain/internal/ram"
)

// RAM layout names that can be passed as option.
const (
	LayoutAuto    = "auto"
	LayoutConsole = "console"
	LayoutArcade  = "arcade"
)

// Parameters contains file path options.
type Parameters struct {
	Input  string `flag:"i" usage:"input RAM dump file"`
	Output string `flag:"o" usage:"output listing file (default: stdout)"`
	Batch  string `flag:"batch" usage:"batch process files matching pattern (e.g. *.ram)"`
}

// Flags contains behavior options.
type Flags struct {
	Start   string `flag:"start" usage:"address of the first chain node" default:"0"`
	Layout  string `flag:"ram" usage:"RAM layout: auto, console, arcade" default:"auto"`
	Decode  bool   `flag:"decode" usage:"decode GP0 commands of the block payloads"`
	Payload bool   `flag:"payload" usage:"list the payload words of every block"`
	Verify  bool   `flag:"verify" usage:"verify the loop detection with an exact walk"`
	Debug   bool   `flag:"debug" usage:"enable debug logging"`
	Quiet   bool   `flag:"q" usage:"quiet mode"`
}

// Program options of the chain dump tool.
type Program struct {
	Parameters
	Flags
}

// Chain defines options to control the chain listing.
type Chain struct {
	Start   uint32     // address of the first chain node
	Layout  ram.Layout // resolved RAM layout, zero value for auto detection
	Decode  bool
	Payload bool
	Verify  bool
}

// NewChain returns chain options for the given start address with the RAM
// layout resolved from its name. Unknown names leave the layout unset.
func NewChain(start uint32, layoutName string) Chain {
	opts := Chain{Start: start}
	switch strings.ToLower(layoutName) {
	case LayoutConsole:
		opts.Layout = ram.Console
	case LayoutArcade:
		opts.Layout = ram.Arcade
	}
	return opts
}
