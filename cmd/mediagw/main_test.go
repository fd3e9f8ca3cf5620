package main

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testRouteTable = `
[[routes]]
route = "/fox"
quality = "low"
default = true
model = "fal-ai/flux/schnell"
price = "10"
response_url_path = "images.0.url"
media_type = "image"
output_extension = "png"

[[routes]]
route = "/gif"
quality = "low"
default = true
model = "fal-ai/fast-animatediff/text-to-video"
price = "0.5"
response_url_path = "video.url"
media_type = "gif"
output_extension = "gif"

[routes.post_process]
kind = "transcode"
input_extension = "mp4"
args = ["-vf", "fps=10"]
`

func writeRouteTable(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write routes: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRoutesValidate(t *testing.T) {
	path := writeRouteTable(t, testRouteTable)

	out, err := runCLI(t, "routes", "validate", "--file", path, "--decimals", "2")
	if err != nil {
		t.Fatalf("validate: %v (%s)", err, out)
	}
	if !strings.Contains(out, "2 routes, 2 quality tiers OK") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRoutesValidate_RejectsPrecision(t *testing.T) {
	path := writeRouteTable(t, testRouteTable)

	if _, err := runCLI(t, "routes", "validate", "--file", path, "--decimals", "0"); err == nil {
		t.Fatalf("price 0.5 must not validate with 0 decimals")
	}
}

func TestRoutesValidate_MissingFile(t *testing.T) {
	_, err := runCLI(t, "routes", "validate", "--file", filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatalf("expected an error for a missing route table")
	}
}

func TestRoutesList(t *testing.T) {
	path := writeRouteTable(t, testRouteTable)

	out, err := runCLI(t, "routes", "list", "--file", path, "--decimals", "2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"/fox", "/gif", "fal-ai/flux/schnell", "1000", "50", "mp4 -> gif"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRoutesList_DecimalsFromEnv(t *testing.T) {
	path := writeRouteTable(t, testRouteTable)
	t.Setenv("PAYMENT_TOKEN_DECIMALS", "3")

	out, err := runCLI(t, "routes", "list", "--file", path)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "10000") || !strings.Contains(out, "500") {
		t.Fatalf("amounts should use 3 decimals:\n%s", out)
	}
}

func TestAppVersion(t *testing.T) {
	t.Setenv("APP_VERSION", "")
	prev := version
	t.Cleanup(func() { version = prev })

	version = ""
	if got := appVersion(); got != "dev" {
		t.Fatalf("appVersion() = %q", got)
	}
	version = "1.2.3"
	if got := appVersion(); got != "1.2.3" {
		t.Fatalf("appVersion() = %q", got)
	}
}

func TestProbe_UnpaidChallengeIsNotAnError(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"x402Version":1,"accepts":[],"error":null}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "probe", "fox", "--url", srv.URL, "--prompt", "a red fox", "--quality", "high")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !strings.Contains(out, "402 Payment Required") || !strings.Contains(out, `"x402Version": 1`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if gotQuery != "prompt=a+red+fox&quality=high" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestProbe_PaidSuccessPrintsSettlement(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-PAYMENT") != "cGF5" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("X-PAYMENT-RESPONSE", base64.StdEncoding.EncodeToString([]byte(`{"success":true,"transaction":"0xtx"}`)))
		_, _ = w.Write([]byte(`{"url":"https://cdn.test/fox/a.png","cached":false}`))
	}))
	defer srv.Close()

	out, err := runCLI(t, "probe", "/fox", "--url", srv.URL, "--payment", "cGF5")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !strings.Contains(out, `"transaction":"0xtx"`) || !strings.Contains(out, "cdn.test/fox/a.png") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestProbe_RejectedPaymentFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"x402Version":1,"accepts":[],"error":"Payment invalid: insufficient_funds"}`))
	}))
	defer srv.Close()

	if _, err := runCLI(t, "probe", "fox", "--url", srv.URL, "--payment", "cGF5"); err == nil {
		t.Fatalf("a rejected payment should fail the probe")
	}
}
