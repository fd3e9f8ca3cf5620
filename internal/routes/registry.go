package routes

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// reserved paths are served by the gateway itself.
var reserved = map[string]bool{
	"/":        true,
	"/health":  true,
	"/metrics": true,
	"/swagger": true,
}

// Registry is the validated, immutable route table. It is safe for
// concurrent use.
type Registry struct {
	routes   map[string]map[string]Definition
	defaults map[string]string
}

// GroupByRoute indexes definitions as route -> quality -> definition. When a
// (route, quality) pair repeats, the later definition wins.
func GroupByRoute(defs []Definition) map[string]map[string]Definition {
	out := make(map[string]map[string]Definition)
	for _, d := range defs {
		q, ok := out[d.Route]
		if !ok {
			q = make(map[string]Definition)
			out[d.Route] = q
		}
		q[d.Quality] = d
	}
	return out
}

// Validate checks every definition against the token precision and the
// table-wide rules: unique (route, quality) pairs, unique resource paths
// and exactly one default tier per route. All problems are reported, joined.
func Validate(defs []Definition, decimals int) error {
	var errs []error
	seen := make(map[string]bool)
	resources := make(map[string]string)
	defaults := make(map[string][]string)

	for _, d := range defs {
		src := d.Route + "?quality=" + d.Quality
		bad := func(msg string) { errs = append(errs, &ConfigError{Source: src, Msg: msg}) }

		switch {
		case strings.TrimSpace(d.Route) == "":
			bad("route is required")
		case !strings.HasPrefix(d.Route, "/"):
			bad("route must start with '/'")
		case reserved[d.Route]:
			bad("route is reserved")
		}
		if strings.TrimSpace(d.Quality) == "" {
			bad("quality is required")
		}
		if strings.TrimSpace(d.Model) == "" {
			bad("model is required")
		}
		if strings.TrimSpace(d.ResponseURLPath) == "" {
			bad("response_url_path is required")
		}
		if strings.TrimSpace(d.OutputExtension) == "" {
			bad("output_extension is required")
		}
		if _, err := ToMinorUnits(d.Price, decimals); err != nil {
			errs = append(errs, &ConfigError{Source: src, Msg: "invalid price", Err: err})
		}
		if pp := d.PostProcess; pp != nil {
			switch pp.Kind {
			case "", PostProcessNone:
			case PostProcessTranscode:
				if strings.TrimSpace(pp.InputExtension) == "" {
					bad("transcode step needs input_extension")
				}
			default:
				bad(fmt.Sprintf("unknown post_process kind %q", pp.Kind))
			}
		}

		key := d.Route + "\x00" + d.Quality
		if seen[key] {
			bad("duplicate route and quality")
		}
		seen[key] = true
		p := d.ResourcePath()
		if prev, ok := resources[p]; ok && prev != src {
			bad(fmt.Sprintf("resource path %q already used by %s", p, prev))
		}
		resources[p] = src
		if d.Default {
			defaults[d.Route] = append(defaults[d.Route], d.Quality)
		}
	}

	for route := range GroupByRoute(defs) {
		switch n := len(defaults[route]); {
		case n == 0:
			errs = append(errs, &ConfigError{Source: route, Msg: "no default quality tier"})
		case n > 1:
			errs = append(errs, &ConfigError{Source: route, Msg: fmt.Sprintf("multiple default quality tiers %v", defaults[route])})
		}
	}
	return errors.Join(errs...)
}

// NewRegistry validates defs and precomputes each price in minor units.
func NewRegistry(defs []Definition, decimals int) (*Registry, error) {
	if err := Validate(defs, decimals); err != nil {
		return nil, err
	}
	r := &Registry{
		routes:   make(map[string]map[string]Definition),
		defaults: make(map[string]string),
	}
	for route, tiers := range GroupByRoute(defs) {
		r.routes[route] = make(map[string]Definition, len(tiers))
		for q, d := range tiers {
			d.amount, _ = ToMinorUnits(d.Price, decimals)
			r.routes[route][q] = d
			if d.Default {
				r.defaults[route] = q
			}
		}
	}
	return r, nil
}

// Resolve returns the definition for route at the requested quality. An
// empty quality selects the route's default tier.
func (r *Registry) Resolve(route, quality string) (Definition, error) {
	tiers, ok := r.routes[route]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownRoute, route)
	}
	quality = strings.TrimSpace(quality)
	if quality == "" {
		quality = r.defaults[route]
	}
	d, ok := tiers[quality]
	if !ok {
		return Definition{}, &QualityError{Quality: quality, Valid: r.qualityNames(route)}
	}
	return d, nil
}

// Routes lists configured routes in lexical order.
func (r *Registry) Routes() []string {
	out := make([]string, 0, len(r.routes))
	for route := range r.routes {
		out = append(out, route)
	}
	sort.Strings(out)
	return out
}

// Qualities lists a route's tiers, default first, then by name.
func (r *Registry) Qualities(route string) []Definition {
	tiers := r.routes[route]
	out := make([]Definition, 0, len(tiers))
	for _, d := range tiers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Default != out[j].Default {
			return out[i].Default
		}
		return out[i].Quality < out[j].Quality
	})
	return out
}

// Len is the number of (route, quality) entries.
func (r *Registry) Len() int {
	n := 0
	for _, tiers := range r.routes {
		n += len(tiers)
	}
	return n
}

func (r *Registry) qualityNames(route string) []string {
	out := make([]string, 0, len(r.routes[route]))
	for q := range r.routes[route] {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}
