package engine

// Status is an integration's result for one pass.
type Status string

const (
	// StatusRegistered means the integration's action was registered.
	StatusRegistered Status = "registered"

	// StatusSkipped means no MIME types were resolved; no action exists.
	StatusSkipped Status = "skipped"

	// StatusFailed means the host rejected the action.
	StatusFailed Status = "failed"
)

// Report describes what a pass registered and why.
type Report struct {
	PassID       string              `json:"pass_id"`
	Integrations []IntegrationReport `json:"integrations"`
	Umbrella     *UmbrellaReport     `json:"umbrella,omitempty"`
	Suppressed   []string            `json:"suppressed"`
	Missing      []string            `json:"missing_legacy"`
	Diagnostics  []Diagnostic        `json:"diagnostics"`
}

// IntegrationReport is one integration's line in the Report.
type IntegrationReport struct {
	Integration  string   `json:"integration"`
	Source       string   `json:"source"`
	Status       Status   `json:"status"`
	ActionID     string   `json:"action_id,omitempty"`
	Exec         string   `json:"exec,omitempty"`
	NativeAction string   `json:"native_action,omitempty"`
	Mimes        []string `json:"mimes"`
	IconFallback bool     `json:"icon_fallback,omitempty"`
}

// UmbrellaReport describes the umbrella action, present only when it was registered.
type UmbrellaReport struct {
	ActionID string   `json:"action_id"`
	Order    int      `json:"order"`
	Children []string `json:"children"`
}

// Diagnostic is a PassError flattened for the Report.
type Diagnostic struct {
	Seq         int64     `json:"seq"`
	Code        ErrorCode `json:"code"`
	Integration string    `json:"integration,omitempty"`
	Message     string    `json:"message"`
}

// Registered returns the ids of every action the pass registered, umbrella last.
func (r *Report) Registered() []string {
	var ids []string
	for _, in := range r.Integrations {
		if in.Status == StatusRegistered {
			ids = append(ids, in.ActionID)
		}
	}
	if r.Umbrella != nil {
		ids = append(ids, r.Umbrella.ActionID)
	}
	return ids
}

// Integration returns the report line for id.
func (r *Report) Integration(id string) (IntegrationReport, bool) {
	for _, in := range r.Integrations {
		if in.Integration == id {
			return in, true
		}
	}
	return IntegrationReport{}, false
}
