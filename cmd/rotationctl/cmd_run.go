package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaelbyte/rotation-kernel/builder"
	"github.com/kaelbyte/rotation-kernel/logstore"
	"github.com/kaelbyte/rotation-kernel/rotation"
)

func newRunCommand() *cobra.Command {
	var driver string
	var maxSteps int
	var opPriority []string
	var logPath string
	var full bool

	cmd := &cobra.Command{
		Use:           "run <character.yaml>",
		Short:         "Drive a character to completion and print its operation log",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRotation(cmd, args[0], driver, maxSteps, opPriority, logPath, full)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "meta", "which rotation driver to run: meta|greedy")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 1000, "upper bound on driver steps (operations for greedy, meta-operations for meta), a safety valve against an infinite rotation")
	cmd.Flags().StringSliceVar(&opPriority, "op-priority", nil, "operation ID priority order, greedy driver only; defaults to registration order")
	cmd.Flags().StringVar(&logPath, "log", "", "optional SQLite file to append the run's operation log to")
	cmd.Flags().BoolVar(&full, "full", false, "attach a resource snapshot to every record instead of just its consume delta")

	return cmd
}

func drive(character *rotation.Character, driver string, maxSteps int, opPriority []string) ([]*rotation.OperationRecord, error) {
	switch driver {
	case "meta":
		return character.BuildRotationFromMeta(maxSteps), nil
	case "greedy":
		return character.BuildRotationGreedyOps(maxSteps, opPriority), nil
	default:
		return nil, NewExitError(ExitCommandError, "unknown driver "+driver+", want meta or greedy")
	}
}

func driveFull(character *rotation.Character, driver string, maxSteps int, opPriority []string) ([]*rotation.FullRecord, error) {
	switch driver {
	case "meta":
		return character.BuildRotationFromMetaFull(maxSteps), nil
	case "greedy":
		return character.BuildRotationGreedyOpsFull(maxSteps, opPriority), nil
	default:
		return nil, NewExitError(ExitCommandError, "unknown driver "+driver+", want meta or greedy")
	}
}

func runRotation(cmd *cobra.Command, path, driver string, maxSteps int, opPriority []string, logPath string, full bool) error {
	character, err := builder.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "document is invalid", err)
	}

	if full {
		return runRotationFull(cmd, character, driver, maxSteps, opPriority, logPath)
	}

	runRecords, err := drive(character, driver, maxSteps, opPriority)
	if err != nil {
		return err
	}

	for _, rec := range runRecords {
		fmt.Fprintf(cmd.OutOrStdout(), "%.2f  %s (#%d)  %v\n", rec.Time, rec.OperationID, rec.Counter, rec.Consumed)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %d operation(s) executed, %.2fs elapsed\n", len(runRecords), character.Timer.Now())

	if logPath != "" {
		store, err := logstore.Open(logPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open log store", err)
		}
		defer store.Close()

		runID, err := store.StartRun(character.Name, character.RunID, 0)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start run", err)
		}
		if err := store.AppendRecords(runID, runRecords); err != nil {
			return WrapExitError(ExitCommandError, "failed to persist run", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ run %d logged to %s\n", runID, logPath)
	}

	return nil
}

func runRotationFull(cmd *cobra.Command, character *rotation.Character, driver string, maxSteps int, opPriority []string, logPath string) error {
	runRecords, err := driveFull(character, driver, maxSteps, opPriority)
	if err != nil {
		return err
	}

	for _, rec := range runRecords {
		fmt.Fprintf(cmd.OutOrStdout(), "%.2f  %s (#%d)  %v  resources=%v\n", rec.Time, rec.OperationID, rec.Counter, rec.Consumed, rec.Resources)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ %d operation(s) executed, %.2fs elapsed\n", len(runRecords), character.Timer.Now())

	if logPath != "" {
		store, err := logstore.Open(logPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open log store", err)
		}
		defer store.Close()

		runID, err := store.StartRun(character.Name, character.RunID, 0)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start run", err)
		}
		if err := store.AppendFullRecords(runID, runRecords); err != nil {
			return WrapExitError(ExitCommandError, "failed to persist run", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ run %d logged to %s\n", runID, logPath)
	}

	return nil
}
