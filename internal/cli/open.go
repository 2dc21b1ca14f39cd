package cli

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/officeswitcher/officeswitcher/internal/action"
	"github.com/officeswitcher/officeswitcher/internal/capability"
	"github.com/officeswitcher/officeswitcher/internal/engine"
	"github.com/officeswitcher/officeswitcher/internal/viewer"
)

// OpenOptions holds flags for the open command.
type OpenOptions struct {
	PassOptions
	Mime   string
	FileID int64
	Dir    string
	With   string   // integration id; empty picks the first enabled one
	Query  []string // key=value pairs already in the route
	Close  bool
}

// OpenResult describes one open.
type OpenResult struct {
	PassID      string `json:"pass_id"`
	Action      string `json:"action"`
	Outcome     string `json:"outcome"`
	Query       string `json:"query"`
	ClosedQuery string `json:"closed_query,omitempty"`
}

// NewOpenCommand creates the open command.
func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpenOptions{PassOptions: PassOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Run a pass, then open a file with one of the registered actions",
		Long: `Run one pass, then run the action that would open <path> from the menu.

Integrations without their own action open the file in the viewer: the route
gains openfile/editing/dir query keys while it is open, and --close simulates
the user closing it, which restores the route. Viewer and event output is
written to stdout.

Examples:
  office-switcher open /Documents/report.odt --mime application/vnd.oasis.opendocument.text --capabilities caps.json
  office-switcher open /scan.pdf --mime application/pdf --with thinkfree --existing thinkfreeEditorAction --publish thinkfree=formats.json --close`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Mime, "mime", "", "MIME type of the file (required)")
	_ = cmd.MarkFlagRequired("mime")
	cmd.Flags().Int64Var(&opts.FileID, "fileid", 1, "file id")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "directory the file is listed in (default: the file's parent)")
	cmd.Flags().StringVar(&opts.With, "with", "", "integration to open with (default: first enabled)")
	cmd.Flags().StringArrayVar(&opts.Query, "query", nil, "route query entry before opening (key=value)")
	cmd.Flags().BoolVar(&opts.Close, "close", false, "close the viewer after opening")

	return cmd
}

func runOpen(opts *OpenOptions, nodePath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	query, err := parseQuery(opts.Query)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	view := action.View{ID: "files"}
	router := viewer.NewMemoryRouter("files", map[string]string{"view": view.ID}, query)
	lv := viewer.NewLogViewer(out)
	bridge := viewer.NewBridge(router, router, lv,
		viewer.WithLogger(logger),
		viewer.WithEventBus(viewer.LogBus{W: out}),
	)

	env, err := newPassEnv(ctx, &opts.PassOptions, bridge, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := env.engine.Run(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "pass failed", err)
	}

	node := action.Node{Path: nodePath, FileID: opts.FileID, Mime: opts.Mime}
	dir := opts.Dir
	if dir == "" {
		dir = path.Dir(nodePath)
	}

	a, err := pickAction(env, report, node, view, opts.With)
	if err != nil {
		return WrapExitError(ExitFailure, "nothing to open with", err)
	}

	outcome, err := a.Exec(ctx, node, view, dir)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s failed", a.ID), err)
	}
	result := OpenResult{
		PassID:  report.PassID,
		Action:  a.ID,
		Outcome: outcome.String(),
		Query:   viewer.FormatQuery(router.Query()),
	}

	closed := false
	if opts.Close && lv.IsOpen() {
		onClose := lv.Options().OnClose
		lv.Close()
		if onClose != nil {
			onClose()
		}
		result.ClosedQuery = viewer.FormatQuery(router.Query())
		closed = true
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: out}
	if opts.Format == "json" {
		return formatter.SuccessFor(report.PassID, result)
	}
	fmt.Fprintf(out, "%s: %s\n", result.Action, result.Outcome)
	fmt.Fprintf(out, "query: %s\n", result.Query)
	if closed {
		fmt.Fprintf(out, "after close: %s\n", result.ClosedQuery)
	}
	return nil
}

// pickAction returns the child action that opens node: the one for
// integration when given, otherwise the first enabled child in registration order.
func pickAction(env *passEnv, report *engine.Report, node action.Node, view action.View, integration string) (*action.Action, error) {
	nodes := []action.Node{node}
	umbrella := env.cfg.UmbrellaID()

	if integration != "" {
		id := engine.ChildID(umbrella, capability.IntegrationID(integration))
		a, ok := env.registry.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("integration %s has no action", integration)
		}
		if !a.Enabled(nodes, view) {
			return nil, fmt.Errorf("%s cannot open %s", integration, node.Mime)
		}
		return a, nil
	}

	for _, id := range report.Registered() {
		if id == umbrella {
			continue
		}
		if a, ok := env.registry.Lookup(id); ok && a.Enabled(nodes, view) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no integration can open %s", node.Mime)
}

// parseQuery turns key=value pairs into a route query.
func parseQuery(pairs []string) (map[string]string, error) {
	query := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("want key=value, got %q", pair)
		}
		query[k] = v
	}
	return query, nil
}
