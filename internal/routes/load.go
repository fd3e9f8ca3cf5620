package routes

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type file struct {
	Routes []Definition `toml:"routes"`
}

// Load reads the [[routes]] array of a TOML route table. Unknown keys are
// rejected so typos do not silently drop settings.
func Load(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Source: path, Msg: "read route table", Err: err}
	}
	return Parse(path, data)
}

// Parse decodes a route table held in memory. source names it in errors.
func Parse(source string, data []byte) ([]Definition, error) {
	var f file
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, &ConfigError{Source: source, Msg: "parse route table", Err: err}
	}
	if len(f.Routes) == 0 {
		return nil, &ConfigError{Source: source, Msg: "no [[routes]] defined"}
	}
	return f.Routes, nil
}
