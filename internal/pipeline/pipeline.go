// Package pipeline orchestrates the chain listing workflow stages.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/retroenv/gpuchain/internal/detector"
	"github.com/retroenv/gpuchain/internal/dmachain"
	"github.com/retroenv/gpuchain/internal/gp0"
	"github.com/retroenv/gpuchain/internal/gpustat"
	"github.com/retroenv/gpuchain/internal/loader"
	"github.com/retroenv/gpuchain/internal/options"
	"github.com/retroenv/gpuchain/internal/ram"
	"github.com/retroenv/gpuchain/internal/verification"
	"github.com/retroenv/gpuchain/internal/writer"
	"github.com/retroenv/retrogolib/log"
)

// Pipeline orchestrates the complete chain listing workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new chain listing pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(),
	}
}

// Execute runs the complete chain listing pipeline.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, chainOpts options.Chain,
	output io.Writer) (gp0.Stats, error) {

	region, err := p.loader.Load(opts.Input, func(dumpSize int64) (ram.Layout, error) {
		return p.detector.Detect(chainOpts, dumpSize)
	})
	if err != nil {
		return gp0.Stats{}, fmt.Errorf("loading RAM dump: %w", err)
	}

	return p.ExecuteWithRegion(ctx, region, opts, chainOpts, output)
}

// ExecuteWithRegion runs the chain listing pipeline with a pre-loaded RAM region.
// This is useful for testing and programmatic usage where the dump is already in memory.
func (p *Pipeline) ExecuteWithRegion(ctx context.Context, region *ram.Region, opts options.Program,
	chainOpts options.Chain, output io.Writer) (gp0.Stats, error) {

	layout := region.Layout()
	p.printInfo(opts, layout, chainOpts)

	out := writer.New(output, writer.Options{
		AddressMask: layout.AddressMask(),
		Payload:     chainOpts.Payload,
	})
	if err := out.WriteCommentHeader(opts.Input, layout, chainOpts.Start); err != nil {
		return gp0.Stats{}, fmt.Errorf("writing header: %w", err)
	}

	stats, err := p.listChain(ctx, region, chainOpts, out)
	if err != nil {
		return stats, fmt.Errorf("listing chain: %w", err)
	}

	if err := out.WriteSummary(stats); err != nil {
		return stats, fmt.Errorf("writing summary: %w", err)
	}

	if chainOpts.Verify {
		if _, err := verification.VerifyChain(p.logger, region, chainOpts.Start, stats.Stop, stats.Blocks); err != nil {
			return stats, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}

	return stats, nil
}

// listChain writes every block of the chain and, if enabled, the GP0 commands
// that the block payloads complete. The status register reports the command
// stream as busy while the chain is walked.
func (p *Pipeline) listChain(ctx context.Context, region *ram.Region, chainOpts options.Chain,
	out *writer.Writer) (gp0.Stats, error) {

	var stats gp0.Stats
	status := gpustat.New()
	processor := gp0.NewProcessor(p.logger, status, gp0.SinkFunc(out.WriteCommand))
	reader := dmachain.New(region, chainOpts.Start)

	err := gpustat.WithCommandStream(status, func() error {
		for block := range reader.Blocks() {
			if err := ctx.Err(); err != nil {
				return err
			}

			payload := region.Words(block.Pointer, block.Size)
			if err := out.WriteBlock(block, payload); err != nil {
				return err
			}

			stats.Blocks++
			stats.Words += block.Size
			if block.Size == 0 {
				stats.EmptyBlocks++
				continue
			}

			if chainOpts.Decode {
				commands, err := processor.WriteData(payload)
				stats.Commands += commands
				if err != nil {
					return fmt.Errorf("decoding block at 0x%06X: %w", block.Node, err)
				}
			}
		}
		return nil
	})

	stats.Steps = reader.Steps()
	stats.Stop = reader.Reason()
	if err != nil {
		return stats, err
	}

	if processor.Pending() {
		p.logger.Warn("Chain ends with an incomplete GP0 command")
	}
	if stats.Stop != dmachain.EndReached {
		p.logger.Warn("DMA chain aborted",
			log.Hex("start", chainOpts.Start),
			log.String("reason", stats.Stop.String()),
			log.Int("blocks", stats.Blocks))
	}
	return stats, nil
}

// printInfo prints information about the dump being processed.
func (p *Pipeline) printInfo(opts options.Program, layout ram.Layout, chainOpts options.Chain) {
	if opts.Quiet {
		return
	}

	p.logger.Info("Processing RAM dump",
		log.String("file", opts.Input),
		log.Stringer("layout", layout),
		log.Hex("start", chainOpts.Start),
	)
}
