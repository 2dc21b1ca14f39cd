package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/officeswitcher/officeswitcher/internal/engine"
	"github.com/officeswitcher/officeswitcher/internal/registry"
)

// AssertionContext provides the host state assertions inspect.
type AssertionContext struct {
	Registry *registry.Registry
}

// AssertionError is returned when an assertion fails.
// It includes the pass summary to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Report   *engine.Report
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Report != nil {
		fmt.Fprintf(&buf, "\nPass %s:\n", e.Report.PassID)
		for _, in := range e.Report.Integrations {
			fmt.Fprintf(&buf, "  %s: %s %s\n", in.Integration, in.Status, in.ActionID)
		}
		for _, d := range e.Report.Diagnostics {
			fmt.Fprintf(&buf, "  [%d] %s %s: %s\n", d.Seq, d.Code, d.Integration, d.Message)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages, empty if all hold.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertRegistered:
		return assertRegistered(result.Report, a)
	case AssertAbsent:
		return assertAbsent(result.Report, a, actx)
	case AssertSuppressed:
		return assertSuppressed(result.Report, a, actx)
	case AssertDiagnostic:
		return assertDiagnostic(result.Report, a)
	case AssertJournal:
		return assertJournal(result)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertRegistered checks the pass registered exactly the listed actions, in order.
func assertRegistered(r *engine.Report, a Assertion) error {
	got := r.Registered()
	want := a.Actions
	if want == nil {
		want = []string{}
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertRegistered,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Report:   r,
	}
}

// assertAbsent checks none of the listed actions exist in the host.
func assertAbsent(r *engine.Report, a Assertion, actx *AssertionContext) error {
	for _, id := range a.Actions {
		if _, ok := actx.Registry.Lookup(id); ok {
			return &AssertionError{
				Type:     AssertAbsent,
				Expected: fmt.Sprintf("no action %s", id),
				Actual:   "action registered",
				Report:   r,
			}
		}
	}
	return nil
}

// assertSuppressed checks every listed action exists, is disabled, and is
// reported as suppressed.
func assertSuppressed(r *engine.Report, a Assertion, actx *AssertionContext) error {
	for _, id := range a.Actions {
		act, ok := actx.Registry.Lookup(id)
		switch {
		case !ok:
			return &AssertionError{
				Type:     AssertSuppressed,
				Expected: fmt.Sprintf("action %s suppressed", id),
				Actual:   "action not registered",
				Report:   r,
			}
		case !act.Suppressed():
			return &AssertionError{
				Type:     AssertSuppressed,
				Expected: fmt.Sprintf("action %s suppressed", id),
				Actual:   "action enabled",
				Report:   r,
			}
		case !slices.Contains(r.Suppressed, id):
			return &AssertionError{
				Type:     AssertSuppressed,
				Expected: fmt.Sprintf("action %s in report", id),
				Actual:   fmt.Sprintf("suppressed %v", r.Suppressed),
				Report:   r,
			}
		}
	}
	return nil
}

// assertDiagnostic checks the report holds a diagnostic with the code, and the
// integration when one is given.
func assertDiagnostic(r *engine.Report, a Assertion) error {
	for _, d := range r.Diagnostics {
		if string(d.Code) != a.Code {
			continue
		}
		if a.Integration != "" && d.Integration != a.Integration {
			continue
		}
		return nil
	}
	expected := a.Code
	if a.Integration != "" {
		expected += " for " + a.Integration
	}
	return &AssertionError{
		Type:     AssertDiagnostic,
		Expected: expected,
		Actual:   fmt.Sprintf("%d diagnostics, none matching", len(r.Diagnostics)),
		Report:   r,
	}
}

// assertJournal checks the journaled pass reads back as the report.
func assertJournal(result *Result) error {
	want, err := json.Marshal(result.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	got, err := json.Marshal(result.Journal)
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}
	if bytes.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertJournal,
		Expected: string(want),
		Actual:   string(got),
		Report:   result.Report,
	}
}
