// Command archie drives emulation-based fault-injection campaigns:
// given a pre-goldenrun memory/register bundle and a fault campaign, it
// runs the target under Unicorn Engine and reports the resulting trace.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Fraunhofer-AISEC/archie/internal/driver"
	"github.com/Fraunhofer-AISEC/archie/internal/ioschema"
	"github.com/Fraunhofer-AISEC/archie/internal/log"
	progressui "github.com/Fraunhofer-AISEC/archie/internal/ui/progress"
)

var (
	debugLog   bool
	watch      bool
	logDir     string
	concurrent int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "archie",
		Short: "Emulation-driven fault-injection worker",
		Long: `archie drives a CPU emulator (Unicorn Engine) through a target program,
injecting and reverting faults at configured triggers, and returns a
structured trace of block execution, memory access, and register state.`,
	}

	runCmd := &cobra.Command{
		Use:   "run <bundle.json|bundle.yaml>",
		Short: "Run a single fault-injection campaign",
		Args:  cobra.ExactArgs(1),
		RunE:  runOne,
	}
	runCmd.Flags().BoolVar(&debugLog, "debug", false, "enable the per-run debug log file")
	runCmd.Flags().StringVar(&logDir, "log-dir", ".", "directory for the debug log file")
	runCmd.Flags().BoolVar(&watch, "watch", false, "show a live progress view while the run executes")
	rootCmd.AddCommand(runCmd)

	batchCmd := &cobra.Command{
		Use:   "batch <bundle.json|bundle.yaml>...",
		Short: "Run many campaigns concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().BoolVar(&debugLog, "debug", false, "enable the per-run debug log file")
	batchCmd.Flags().StringVar(&logDir, "log-dir", ".", "directory for debug log files")
	batchCmd.Flags().IntVar(&concurrent, "concurrency", 4, "maximum concurrent runs")
	rootCmd.AddCommand(batchCmd)

	describeCmd := &cobra.Command{
		Use:   "describe <bundle.json|bundle.yaml>",
		Short: "Parse and summarize an input bundle without emulating",
		Args:  cobra.ExactArgs(1),
		RunE:  describe,
	}
	rootCmd.AddCommand(describeCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadBundle(path string) (*ioschema.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ioschema.Decode(path, data)
}

func runOne(cmd *cobra.Command, args []string) error {
	bundle, err := loadBundle(args[0])
	if err != nil {
		return err
	}

	runID := uuid.New()
	logger, err := log.NewRunLogger(logDir, bundle.RunParams.Index, debugLog || bundle.RunParams.Debug)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Info("starting run", log.Fn("run"), zap.String("run_id", runID.String()))

	var progressCh chan driver.Progress
	var program *tea.Program
	if watch {
		progressCh = make(chan driver.Progress, 64)
		program = tea.NewProgram(progressui.New(progressCh, bundle.Config.MaxInstructionCount))
		go func() {
			_, _ = program.Run()
		}()
	}

	result, err := driver.Run(bundle, logger, progressCh)
	if progressCh != nil {
		close(progressCh)
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}

	return writeResult(cmd, result)
}

func runBatch(cmd *cobra.Command, args []string) error {
	g := new(errgroup.Group)
	g.SetLimit(concurrent)

	results := make([]*ioschema.Result, len(args))
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			bundle, err := loadBundle(path)
			if err != nil {
				return err
			}
			logger, err := log.NewRunLogger(logDir, bundle.RunParams.Index, debugLog || bundle.RunParams.Debug)
			if err != nil {
				return err
			}
			defer logger.Close()

			result, err := driver.Run(bundle, logger, nil)
			if err != nil {
				return fmt.Errorf("run %s: %w", path, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func describe(cmd *cobra.Command, args []string) error {
	bundle, err := loadBundle(args[0])
	if err != nil {
		return err
	}
	regs, err := bundle.PreGoldenrun.Registers()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", filepath.Clean(args[0]))
	fmt.Fprintf(cmd.OutOrStdout(), "  architecture:    %s\n", bundle.PreGoldenrun.Architecture)
	fmt.Fprintf(cmd.OutOrStdout(), "  start:           0x%x\n", bundle.Config.Start.Address)
	fmt.Fprintf(cmd.OutOrStdout(), "  registers:       %d\n", len(regs))
	fmt.Fprintf(cmd.OutOrStdout(), "  memory regions:  %d\n", len(bundle.PreGoldenrun.Memmaplist))
	fmt.Fprintf(cmd.OutOrStdout(), "  faults:          %d\n", len(bundle.Faults))
	fmt.Fprintf(cmd.OutOrStdout(), "  endpoints:       %d\n", len(bundle.Config.End))
	fmt.Fprintf(cmd.OutOrStdout(), "  max instructions: %d\n", bundle.Config.MaxInstructionCount)
	return nil
}

func writeResult(cmd *cobra.Command, result *ioschema.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
