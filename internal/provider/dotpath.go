package provider

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractString walks a decoded JSON tree along a dot-separated path and
// returns the string found there. Numeric segments index arrays, other
// segments index objects; "images.0.url" reads tree["images"][0]["url"].
func ExtractString(tree any, path string) (string, error) {
	cur := tree
	for _, seg := range strings.Split(path, ".") {
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
			arr, ok := cur.([]any)
			if !ok || idx >= len(arr) {
				return "", fmt.Errorf("array index %d not found in path '%s'", idx, path)
			}
			cur = arr[idx]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", fmt.Errorf("key '%s' not found in path '%s'", seg, path)
		}
		next, ok := obj[seg]
		if !ok {
			return "", fmt.Errorf("key '%s' not found in path '%s'", seg, path)
		}
		cur = next
	}
	s, ok := cur.(string)
	if !ok {
		return "", fmt.Errorf("value at path '%s' is not a string", path)
	}
	return s, nil
}
