package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/officeswitcher/officeswitcher/internal/engine"
	"github.com/officeswitcher/officeswitcher/internal/viewer"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PassOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Run one resolution pass and print its report",
		Long: `Run one resolution and registration pass against an in-memory host.

Every configured integration is resolved to the MIME types it can open, one
action is registered per usable integration, the umbrella is registered over
them, and the legacy actions are hidden. The report lists each integration's
outcome and every diagnostic. With a journal the pass is recorded.

Examples:
  office-switcher resolve --capabilities caps.json
  office-switcher resolve -c switcher.yaml --publish thinkfree=formats.json --existing thinkfreeEditorAction
  office-switcher resolve --db ./switcher.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, cmd)
		},
	}

	opts.addFlags(cmd)

	return cmd
}

func runResolve(opts *PassOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	router := viewer.NewMemoryRouter("files", map[string]string{"view": "files"}, nil)
	bridge := viewer.NewBridge(router, router, viewer.NewLogViewer(io.Discard), viewer.WithLogger(logger))

	env, err := newPassEnv(ctx, opts, bridge, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	report, runErr := env.engine.Run(ctx)
	if report == nil {
		return WrapExitError(ExitFailure, "pass failed", runErr)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
	if opts.Format == "json" {
		if err := formatter.SuccessFor(report.PassID, report); err != nil {
			return err
		}
	} else {
		writeReport(formatter.Writer, report)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "failed to journal pass", runErr)
	}
	return nil
}

// writeReport prints a pass report for humans.
func writeReport(w io.Writer, r *engine.Report) {
	fmt.Fprintf(w, "Pass %s\n\n", r.PassID)

	for _, in := range r.Integrations {
		switch in.Status {
		case engine.StatusRegistered:
			detail := in.Exec
			if in.NativeAction != "" {
				detail += " " + in.NativeAction
			}
			fmt.Fprintf(w, "  %-14s %-10s %s (%s, %d mime types)\n",
				in.Integration, in.Status, in.ActionID, detail, len(in.Mimes))
		default:
			fmt.Fprintf(w, "  %-14s %s\n", in.Integration, in.Status)
		}
	}
	fmt.Fprintln(w)

	if r.Umbrella != nil {
		fmt.Fprintf(w, "Umbrella: %s (order %d) -> %s\n",
			r.Umbrella.ActionID, r.Umbrella.Order, strings.Join(r.Umbrella.Children, ", "))
	} else {
		fmt.Fprintln(w, "Umbrella: not registered")
	}
	fmt.Fprintf(w, "Suppressed: %s\n", listOrNone(r.Suppressed))
	fmt.Fprintf(w, "Missing legacy: %s\n", listOrNone(r.Missing))

	if len(r.Diagnostics) > 0 {
		fmt.Fprintln(w, "\nDiagnostics:")
		for _, d := range r.Diagnostics {
			if d.Integration != "" {
				fmt.Fprintf(w, "  [%d] %s %s: %s\n", d.Seq, d.Code, d.Integration, d.Message)
			} else {
				fmt.Fprintf(w, "  [%d] %s: %s\n", d.Seq, d.Code, d.Message)
			}
		}
	}
}

func listOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
