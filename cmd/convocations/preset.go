package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	convocations "github.com/convocations/convocations"
	"github.com/convocations/convocations/internal/config"
)

// newPresetCommand builds the `preset` subcommand tree: list, show,
// create, update, delete. Builtin presets can never be deleted or
// renamed, enforced both here (a clearer error) and again by
// config.Sanitize on the next load (belt-and-suspenders per spec.md's
// "builtin preset protection enforced" requirement).
func newPresetCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage event window presets",
	}
	cmd.AddCommand(newPresetListCommand(logger))
	cmd.AddCommand(newPresetShowCommand(logger))
	cmd.AddCommand(newPresetCreateCommand(logger))
	cmd.AddCommand(newPresetUpdateCommand(logger))
	cmd.AddCommand(newPresetDeleteCommand(logger))
	return cmd
}

func newPresetListCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := convocations.New(convocations.WithLogger(logger))
			if err != nil {
				return newExitError(exitInternal, err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tWEEKDAY\tSTART\tDURATION\tPREFIX\tBUILTIN")
			for _, p := range app.Presets {
				fmt.Fprintf(tw, "%s\t%s\t%02d:%02d %s\t%dm\t%s\t%v\n",
					p.Name, p.Weekday, p.StartHour, p.StartMinute, p.Timezone, p.DurationMins, p.FilePrefix, p.Builtin)
			}
			return tw.Flush()
		},
	}
}

func newPresetShowCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one preset's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := convocations.New(convocations.WithLogger(logger))
			if err != nil {
				return newExitError(exitInternal, err)
			}
			p, ok := config.FindPreset(app.Presets, args[0])
			if !ok {
				return newExitError(exitArgument, fmt.Errorf("unknown preset %q", args[0]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", p)
			return nil
		},
	}
}

func newPresetCreateCommand(logger *slog.Logger) *cobra.Command {
	var p presetFlags
	cmd := &cobra.Command{
		Use:     "create NAME",
		Aliases: []string{"add"},
		Short:   "Create a new preset",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePresets(cmd, logger, func(app *convocations.App) ([]config.Preset, error) {
				name := args[0]
				if _, exists := config.FindPreset(app.Presets, name); exists {
					return nil, newExitError(exitArgument, fmt.Errorf("preset %q already exists", name))
				}
				weekday, ok := config.ParseWeekday(p.weekday)
				if !ok {
					return nil, newExitError(exitArgument, fmt.Errorf("unknown weekday %q", p.weekday))
				}
				return append(app.Presets, config.Preset{
					Name:            name,
					Weekday:         weekday,
					Timezone:        p.timezone,
					StartHour:       p.startHour,
					StartMinute:     p.startMinute,
					DurationMins:    p.durationMins,
					FilePrefix:      p.filePrefix,
					DefaultWeeksAgo: p.weeksAgo,
				}), nil
			})
		},
	}
	registerPresetFlags(cmd, &p)
	return cmd
}

func newPresetUpdateCommand(logger *slog.Logger) *cobra.Command {
	var p presetFlags
	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Update an existing preset by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePresets(cmd, logger, func(app *convocations.App) ([]config.Preset, error) {
				name := args[0]
				existing, ok := config.FindPreset(app.Presets, name)
				if !ok {
					return nil, newExitError(exitArgument, fmt.Errorf("unknown preset %q", name))
				}
				updated := applyPresetFlags(cmd, existing, p)
				out := make([]config.Preset, 0, len(app.Presets))
				for _, cur := range app.Presets {
					if cur.Name == name {
						out = append(out, updated)
					} else {
						out = append(out, cur)
					}
				}
				return out, nil
			})
		},
	}
	registerPresetFlags(cmd, &p)
	return cmd
}

func newPresetDeleteCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"remove"},
		Short:   "Delete a preset (builtin presets cannot be removed)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePresets(cmd, logger, func(app *convocations.App) ([]config.Preset, error) {
				name := args[0]
				if config.IsBuiltinName(name) {
					return nil, newExitError(exitArgument, fmt.Errorf("builtin preset %q cannot be deleted", name))
				}
				if _, ok := config.FindPreset(app.Presets, name); !ok {
					return nil, newExitError(exitArgument, fmt.Errorf("unknown preset %q", name))
				}
				out := make([]config.Preset, 0, len(app.Presets))
				for _, cur := range app.Presets {
					if cur.Name != name {
						out = append(out, cur)
					}
				}
				return out, nil
			})
		},
	}
}

// mutatePresets loads the App, asks mutate for the new preset slice,
// and persists it. Centralizing the load/mutate/save sequence keeps
// create/update/delete from repeating App construction and error
// wrapping three times over.
func mutatePresets(cmd *cobra.Command, logger *slog.Logger, mutate func(*convocations.App) ([]config.Preset, error)) error {
	app, err := convocations.New(convocations.WithLogger(logger))
	if err != nil {
		return newExitError(exitInternal, err)
	}
	next, err := mutate(app)
	if err != nil {
		return err
	}
	if err := app.SaveConfig(next, nil); err != nil {
		return newExitError(exitInternal, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

type presetFlags struct {
	weekday      string
	timezone     string
	startHour    int
	startMinute  int
	durationMins int
	filePrefix   string
	weeksAgo     int
}

func registerPresetFlags(cmd *cobra.Command, p *presetFlags) {
	f := cmd.Flags()
	f.StringVar(&p.weekday, "weekday", "monday", "weekday the event recurs on")
	f.StringVar(&p.timezone, "timezone", "America/New_York", "IANA timezone identifier")
	f.IntVar(&p.startHour, "start-hour", 0, "start hour, 24h clock")
	f.IntVar(&p.startMinute, "start-minute", 0, "start minute")
	f.IntVar(&p.durationMins, "duration-minutes", 60, "duration in minutes")
	f.StringVar(&p.filePrefix, "file-prefix", "", "output filename prefix")
	f.IntVar(&p.weeksAgo, "default-weeks-ago", 0, "default weeks-ago offset")
}

func applyPresetFlags(cmd *cobra.Command, existing config.Preset, p presetFlags) config.Preset {
	changed := cmd.Flags().Changed
	if changed("weekday") {
		if wd, ok := config.ParseWeekday(p.weekday); ok {
			existing.Weekday = wd
		}
	}
	if changed("timezone") {
		existing.Timezone = p.timezone
	}
	if changed("start-hour") {
		existing.StartHour = p.startHour
	}
	if changed("start-minute") {
		existing.StartMinute = p.startMinute
	}
	if changed("duration-minutes") {
		existing.DurationMins = p.durationMins
	}
	if changed("file-prefix") {
		existing.FilePrefix = p.filePrefix
	}
	if changed("default-weeks-ago") {
		existing.DefaultWeeksAgo = p.weeksAgo
	}
	return existing
}
