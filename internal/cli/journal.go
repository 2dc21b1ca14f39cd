package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/officeswitcher/officeswitcher/internal/store"
)

// JournalOptions holds flags for the journal commands.
type JournalOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewJournalCommand creates the journal command and its subcommands.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded passes",
		Long: `Inspect the passes recorded in a journal database.

Examples:
  office-switcher journal list --db ./switcher.db
  office-switcher journal show --db ./switcher.db 0192f3c4-...
  office-switcher journal history --db ./switcher.db thinkfree --limit 5`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List passes, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <pass-id>",
		Short:         "Show the report of one pass",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalShow(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "history <integration>",
		Short:         "Show one integration's outcomes across passes",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalHistory(opts, args[0], cmd)
		},
	})
	for _, sub := range []string{"list", "history"} {
		c, _, _ := cmd.Find([]string{sub})
		c.Flags().IntVar(&opts.Limit, "limit", 20, "maximum entries (0 for all)")
	}

	return cmd
}

func openJournal(opts *JournalOptions) (*store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

func runJournalList(opts *JournalOptions, cmd *cobra.Command) error {
	st, err := openJournal(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	passes, err := st.ListPasses(context.Background(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list passes", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return (&OutputFormatter{Format: opts.Format, Writer: out}).Success(passes)
	}
	if len(passes) == 0 {
		fmt.Fprintln(out, "No passes recorded")
		return nil
	}
	for _, p := range passes {
		umbrella := "-"
		if p.Umbrella {
			umbrella = "umbrella"
		}
		fmt.Fprintf(out, "%4d  %s  %s  %-8s  registered=%d suppressed=%d diagnostics=%d\n",
			p.Seq, p.RecordedAt.Format("2006-01-02 15:04:05"), p.ID, umbrella,
			p.Registered, p.Suppressed, p.Diagnostics)
	}
	return nil
}

func runJournalShow(opts *JournalOptions, passID string, cmd *cobra.Command) error {
	st, err := openJournal(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.ReadPass(context.Background(), passID)
	if errors.Is(err, store.ErrPassNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("pass not found: %s", passID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read pass", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return (&OutputFormatter{Format: opts.Format, Writer: out}).SuccessFor(report.PassID, report)
	}
	writeReport(out, report)
	return nil
}

func runJournalHistory(opts *JournalOptions, integration string, cmd *cobra.Command) error {
	st, err := openJournal(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.History(context.Background(), integration, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return (&OutputFormatter{Format: opts.Format, Writer: out}).Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "No passes recorded for %s\n", integration)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s  %-10s  %d mime types\n",
			e.RecordedAt.Format("2006-01-02 15:04:05"), e.PassID, e.Status, len(e.Mimes))
	}
	return nil
}
