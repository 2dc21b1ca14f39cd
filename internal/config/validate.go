package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// Validation error codes (E100-E199)
const (
	ErrSchema = "E100" // document does not match the CUE schema

	// Integration table errors (E101-E109)
	ErrDuplicateIntegration = "E101" // integration id listed twice
	ErrStateRefMissing      = "E102" // source "state" without a state reference
	ErrStateRefUnexpected   = "E103" // state reference on a non-state source
	ErrPathsUnexpected      = "E104" // capability_paths on a non-capability source
	ErrActionIDCollision    = "E105" // native action id collides with a switcher id

	// Ambient errors (E110-E119)
	ErrRedisAddrMissing = "E110" // redis backend without an address
	ErrSlotAmbiguous    = "E111" // slot sets both value and file
	ErrDuplicateLegacy  = "E112" // legacy action listed twice
)

// ValidationError represents one configuration problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Errors collects every ValidationError found in one document.
type Errors struct {
	List []ValidationError
}

func (e *Errors) Error() string {
	msgs := make([]string, len(e.List))
	for i, v := range e.List {
		msgs[i] = v.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

const documentName = "config.yaml"

// CheckSchema validates raw YAML against the embedded CUE schema. It returns
// *Errors listing every violation, or nil.
func CheckSchema(data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file, err := cueyaml.Extract(documentName, data)
	if err != nil {
		return &Errors{List: []ValidationError{{Field: "document", Message: err.Error(), Code: ErrSchema}}}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &Errors{List: convertCUEErrors(err)}
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &Errors{List: convertCUEErrors(err)}
	}
	return nil
}

func convertCUEErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		v := ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrSchema,
		}
		if v.Field == "" {
			v.Field = "document"
		}
		for _, pos := range cueerrors.Positions(e) {
			if pos.Filename() == documentName {
				v.Line = pos.Line()
				break
			}
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "document", Message: err.Error(), Code: ErrSchema})
	}
	return out
}

// Validate checks the cross-field rules the schema cannot express.
// Returns all errors found (does not fail-fast).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	switcherIDs := map[string]bool{cfg.UmbrellaID(): true}
	seen := make(map[string]bool)
	for i, in := range cfg.Integrations {
		field := fmt.Sprintf("integrations[%d]", i)
		if seen[in.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate integration %q", in.ID),
				Code:    ErrDuplicateIntegration,
			})
		}
		seen[in.ID] = true
		switcherIDs[cfg.UmbrellaID()+"-"+in.ID] = true

		switch in.Source {
		case "state":
			if in.State == nil {
				errs = append(errs, ValidationError{
					Field:   field + ".state",
					Message: "source \"state\" requires app and key",
					Code:    ErrStateRefMissing,
				})
			}
		default:
			if in.State != nil {
				errs = append(errs, ValidationError{
					Field:   field + ".state",
					Message: fmt.Sprintf("state reference is not used by source %q", in.Source),
					Code:    ErrStateRefUnexpected,
				})
			}
		}
		if in.Source != "capability" && len(in.CapabilityPaths) > 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".capability_paths",
				Message: fmt.Sprintf("capability paths are not used by source %q", in.Source),
				Code:    ErrPathsUnexpected,
			})
		}
	}

	for i, in := range cfg.Integrations {
		if in.NativeAction != "" && switcherIDs[in.NativeAction] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("integrations[%d].native_action", i),
				Message: fmt.Sprintf("%q is registered by the switcher itself", in.NativeAction),
				Code:    ErrActionIDCollision,
			})
		}
	}

	if cfg.State.Backend == "redis" && cfg.State.Redis.Addr == "" {
		errs = append(errs, ValidationError{
			Field:   "state.redis.addr",
			Message: "redis backend requires an address",
			Code:    ErrRedisAddrMissing,
		})
	}
	for i, s := range cfg.State.Slots {
		if s.Value != "" && s.File != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("state.slots[%d]", i),
				Message: "set either value or file, not both",
				Code:    ErrSlotAmbiguous,
			})
		}
	}

	legacy := make(map[string]bool)
	for i, id := range cfg.LegacyActions {
		if legacy[id] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("legacy_actions[%d]", i),
				Message: fmt.Sprintf("duplicate legacy action %q", id),
				Code:    ErrDuplicateLegacy,
			})
		}
		legacy[id] = true
	}

	return errs
}
