package provider

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return v
}

func TestExtractString(t *testing.T) {
	tree := decode(t, `{"images":[{"url":"https://x/a.png"},{"url":"https://x/b.png"}],"video":{"url":"https://x/v.mp4"},"n":3}`)

	cases := map[string]string{
		"images.0.url": "https://x/a.png",
		"images.1.url": "https://x/b.png",
		"video.url":    "https://x/v.mp4",
	}
	for path, want := range cases {
		got, err := ExtractString(tree, path)
		if err != nil || got != want {
			t.Fatalf("ExtractString(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}

func TestExtractString_Errors(t *testing.T) {
	tree := decode(t, `{"images":[{"url":"https://x/a.png"}],"video":{"url":7},"list":["a"]}`)

	cases := []struct {
		path string
		want string
	}{
		{"images.5.url", "array index 5 not found"},
		{"video.uri", "key 'uri' not found"},
		{"missing", "key 'missing' not found"},
		{"video.url", "is not a string"},
		{"images.0", "is not a string"},
		{"list.x", "key 'x' not found"},
		{"video.0", "array index 0 not found"},
	}
	for _, tc := range cases {
		_, err := ExtractString(tree, tc.path)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("ExtractString(%q) err = %v; want containing %q", tc.path, err, tc.want)
		}
	}
}
