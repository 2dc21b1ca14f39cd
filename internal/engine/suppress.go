package engine

// suppress disables every legacy action the host registered. Missing ids are
// recorded but are not a failure.
func (e *Engine) suppress(r *Report) {
	for _, id := range e.legacy {
		if e.registry.Disable(id) {
			r.Suppressed = append(r.Suppressed, id)
			continue
		}
		r.Missing = append(r.Missing, id)
		e.diagnose(r, &PassError{
			Code:    ErrCodeActionLookupMiss,
			Message: "legacy action " + id + " not registered",
		})
	}
}
