package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/day"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	reminder "github.com/magabrotheeeer/subscription-tracker/internal/services/reminder"
)

type runFunc func(ctx context.Context, g Generator, today time.Time) (reminder.RunSummary, error)

// NewRenewalsCommand команда генерации напоминаний о продлении.
func NewRenewalsCommand(rootOpts *RootOptions, rt *Runtime) *cobra.Command {
	return newGenerateCommand(rootOpts, rt, "renewals", "Generate renewal reminders for a day",
		func(ctx context.Context, g Generator, today time.Time) (reminder.RunSummary, error) {
			return g.RenewalsFor(ctx, today)
		})
}

// NewTrialsCommand команда генерации уведомлений об окончании пробного периода.
func NewTrialsCommand(rootOpts *RootOptions, rt *Runtime) *cobra.Command {
	return newGenerateCommand(rootOpts, rt, "trials", "Generate trial-ending notifications for a day",
		func(ctx context.Context, g Generator, today time.Time) (reminder.RunSummary, error) {
			return g.TrialEndingsFor(ctx, today)
		})
}

func newGenerateCommand(rootOpts *RootOptions, rt *Runtime, use, short string, run runFunc) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

Without --date the current day in the configured timezone is used. Passing an
earlier date backfills a day the scheduler missed; repeated runs for the same
day create no duplicates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, rootOpts, rt, date, run)
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day to generate for ("+day.Layout+")")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *RootOptions, rt *Runtime, date string, run runFunc) error {
	var today time.Time
	if date != "" {
		parsed, err := day.Parse(date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", date, err)
		}
		today = parsed
	}

	cfg, err := rt.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	log := rt.NewLogger(cfg, cmd.ErrOrStderr())

	gen, closer, err := rt.OpenGenerator(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			log.Warn("failed to release resources", sl.Err(cerr))
		}
	}()

	if today.IsZero() {
		today = gen.Today()
	}

	summary, err := run(cmd.Context(), gen, today)
	if err != nil {
		return err
	}
	return writeSummary(cmd.OutOrStdout(), opts.Format, summary)
}

type summaryOutput struct {
	Job        string `json:"job"`
	Day        string `json:"day"`
	Candidates int    `json:"candidates"`
	Created    int    `json:"created"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

func writeSummary(w io.Writer, format string, s reminder.RunSummary) error {
	out := summaryOutput{
		Job:        s.Job,
		Day:        s.Day.Format(day.Layout),
		Candidates: s.Candidates,
		Created:    s.Created,
		Duplicates: s.Duplicates,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err := fmt.Fprintf(w, "%s %s: candidates=%d created=%d duplicates=%d skipped=%d failed=%d\n",
		out.Job, out.Day, out.Candidates, out.Created, out.Duplicates, out.Skipped, out.Failed)
	return err
}
