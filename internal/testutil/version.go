package testutil

// FixedVersionGenerator returns the same dataset version every time.
//
// Unlike engine.FixedGenerator which returns versions in sequence, this
// generator never runs out, so a test can reload a dataset any number of
// times and still hit the memo cache.
//
// Thread-safety: FixedVersionGenerator is stateless and safe for concurrent use.
type FixedVersionGenerator struct {
	version string
}

// NewFixedVersionGenerator creates a fixed version generator.
// If version is empty, Generate returns "test-version-default".
func NewFixedVersionGenerator(version string) *FixedVersionGenerator {
	if version == "" {
		version = "test-version-default"
	}
	return &FixedVersionGenerator{version: version}
}

// Generate returns the fixed version.
//
// Implements engine.VersionGenerator.
func (g *FixedVersionGenerator) Generate() string {
	return g.version
}
