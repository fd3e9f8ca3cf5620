// Package routes loads the paid generation route table and resolves a
// request's route and quality tier to the definition that drives payment
// and generation.
package routes

import "strings"

// Post-processing kinds.
const (
	PostProcessNone      = "none"
	PostProcessTranscode = "transcode"
)

// PostProcess describes an optional step run on the downloaded provider
// output before it is stored.
type PostProcess struct {
	Kind           string   `toml:"kind"`
	InputExtension string   `toml:"input_extension"`
	Args           []string `toml:"args"`
}

// Definition is one (route, quality) entry of the route table. Values are
// immutable after the registry is built.
type Definition struct {
	Route           string         `toml:"route"`
	Quality         string         `toml:"quality"`
	Default         bool           `toml:"default"`
	Path            string         `toml:"path"`
	Model           string         `toml:"model"`
	Price           string         `toml:"price"`
	Description     string         `toml:"description"`
	ResponseURLPath string         `toml:"response_url_path"`
	RequestParams   map[string]any `toml:"request_params"`
	DefaultPrompt   string         `toml:"default_prompt"`
	MediaType       string         `toml:"media_type"`
	OutputExtension string         `toml:"output_extension"`
	PostProcess     *PostProcess   `toml:"post_process"`

	amount string
}

// Amount is Price converted to the token's minor units. It is empty for
// definitions that did not come from a Registry.
func (d Definition) Amount() string { return d.amount }

// ResourcePath is the path artifacts of this definition are cached and
// stored under. Without an explicit Path the default tier uses Route and
// every other tier uses Route/Quality, so tiers never share artifacts.
func (d Definition) ResourcePath() string {
	if p := strings.TrimSpace(d.Path); p != "" {
		return p
	}
	if d.Default {
		return d.Route
	}
	return strings.TrimRight(d.Route, "/") + "/" + strings.TrimSpace(d.Quality)
}

// Transcodes reports whether the definition has a transcode step.
func (d Definition) Transcodes() bool {
	return d.PostProcess != nil && d.PostProcess.Kind == PostProcessTranscode
}
