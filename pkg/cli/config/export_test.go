package config

// NewPipeline builds a Pipeline pointing at the given tuning file, bypassing
// flag parsing for tests.
func NewPipeline(path string) *Pipeline {
	return &Pipeline{path: path}
}
