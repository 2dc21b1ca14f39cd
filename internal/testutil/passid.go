package testutil

// DefaultPassID is used when a scenario does not name its pass.
const DefaultPassID = "test-pass-default"

// FixedPassIDs returns the same pass id on every call, so the same scenario
// produces byte-identical reports and journal rows.
//
// Unlike engine.FixedGenerator, which hands out a sequence and panics when it
// runs dry, FixedPassIDs never runs out.
//
// Thread-safety: FixedPassIDs is stateless and safe for concurrent use.
type FixedPassIDs struct {
	id string
}

// NewFixedPassIDs creates a generator for id, or DefaultPassID if id is empty.
func NewFixedPassIDs(id string) *FixedPassIDs {
	if id == "" {
		id = DefaultPassID
	}
	return &FixedPassIDs{id: id}
}

// Generate implements engine.PassIDGenerator.
func (g *FixedPassIDs) Generate() string {
	return g.id
}
