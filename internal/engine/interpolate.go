package engine

import (
	"fmt"
	"regexp"
	"strconv"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Interpolate replaces each {name} occurrence with the stringified context
// value. Unresolved placeholders are left verbatim; that pass-through lets a
// template mention names only later steps produce without erroring.
func Interpolate(template string, vars map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := vars[name]; ok {
			return Stringify(v)
		}
		return match
	})
}

// InterpolateSettings renders every string value in a settings map,
// descending into nested maps and slices. The input is never mutated.
func InterpolateSettings(settings map[string]any, vars map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		out[k] = interpolateValue(v, vars)
	}
	return out
}

func interpolateValue(v any, vars map[string]any) any {
	switch val := v.(type) {
	case string:
		return Interpolate(val, vars)
	case map[string]any:
		return InterpolateSettings(val, vars)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = interpolateValue(item, vars)
		}
		return out
	default:
		return v
	}
}

// Stringify renders a context value for substitution. Floats that carry no
// fraction print as integers so JSON-decoded counts read naturally.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
