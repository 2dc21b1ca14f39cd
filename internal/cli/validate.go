package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/officeswitcher/officeswitcher/internal/config"
)

// ErrCodeConfigRead is reported when the configuration cannot be read at all.
const ErrCodeConfigRead = "E001"

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool                     `json:"valid"`
	Integrations []string                 `json:"integrations,omitempty"`
	Errors       []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file without running a pass.

The document is checked against the configuration schema, then for
cross-field problems (duplicate integrations, state references on the wrong
source, native action ids that collide with synthesized ids, and so on).
Every problem is reported, not just the first. Without an argument the
built-in configuration is validated.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		formatter.VerboseLog("Validating built-in configuration")
		cfg, err = config.Default()
	} else {
		formatter.VerboseLog("Validating %s", path)
		if _, statErr := os.Stat(path); statErr != nil {
			return outputValidateError(formatter, ErrCodeConfigRead, fmt.Sprintf("config file not found: %s", path), nil)
		}
		cfg, err = config.Load(path)
	}

	var cfgErrs *config.Errors
	if errors.As(err, &cfgErrs) {
		return outputValidationErrors(formatter, cfgErrs.List)
	}
	if err != nil {
		return outputValidateError(formatter, ErrCodeConfigRead, err.Error(), nil)
	}

	ids := make([]string, len(cfg.Integrations))
	for i, in := range cfg.Integrations {
		ids[i] = in.ID
		formatter.VerboseLog("Integration %s: source %s", in.ID, in.Source)
	}
	return outputValidateSuccess(formatter, ids)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, ids []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Integrations: ids})
	}

	fmt.Fprintf(formatter.Writer, "✓ Configuration valid (%d integrations)\n", len(ids))
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Unreadable input is a command-level error (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []config.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
