package testutil

// FixedRequestIDGenerator returns the same request id every time.
//
// Unlike engine.FixedGenerator, which returns ids in sequence, this one
// never runs out, so a scenario can send any number of messages.
//
// Thread-safety: FixedRequestIDGenerator is stateless and safe for concurrent use.
type FixedRequestIDGenerator struct {
	id string
}

// NewFixedRequestIDGenerator creates a generator. An empty id means
// "test-request".
func NewFixedRequestIDGenerator(id string) *FixedRequestIDGenerator {
	if id == "" {
		id = "test-request"
	}
	return &FixedRequestIDGenerator{id: id}
}

// Generate implements engine.RequestIDGenerator.
func (g *FixedRequestIDGenerator) Generate() string {
	return g.id
}
