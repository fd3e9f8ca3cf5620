package routes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRoute is returned by Resolve for a route that is not configured.
var ErrUnknownRoute = errors.New("unknown route")

// ConfigError reports a problem with the route table. Startup treats it as
// fatal.
type ConfigError struct {
	Source string // file path or route/quality the problem was found in
	Msg    string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Source == "" {
		return "routes: " + msg
	}
	return fmt.Sprintf("routes: %s: %s", e.Source, msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// QualityError is returned by Resolve when the requested quality tier does
// not exist for the route.
type QualityError struct {
	Quality string
	Valid   []string
}

func (e *QualityError) Error() string {
	quoted := make([]string, len(e.Valid))
	for i, v := range e.Valid {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("Invalid quality '%s'. Valid options: [%s]", e.Quality, strings.Join(quoted, ", "))
}
