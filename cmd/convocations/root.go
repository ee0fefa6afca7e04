package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// newRootCommand builds the full convocations command tree: the
// default conversion command plus the preset and secret subcommands.
// Grounded on tim-coutinho-agentops/cli/cmd/ao/root.go's
// PersistentPreRun/Execute shape, adapted so Execute's exit code
// travels back through a returned error instead of an in-package
// os.Exit call (main.go owns process exit here).
func newRootCommand(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "convocations",
		Short: "Convert game chat-client transcripts into narrative text documents",
		Long: `convocations ingests a verbose chat-client log, narrows it to a
single event's time window, strips client noise, optionally reformats
it as narrative dialogue, and optionally runs it through an LLM for
grammar correction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return newExitError(exitArgument, err)
	})

	root.AddCommand(newRunCommand(logger))
	root.AddCommand(newPresetCommand(logger))
	root.AddCommand(newSecretCommand(logger))

	return root
}
