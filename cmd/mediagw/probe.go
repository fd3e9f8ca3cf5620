package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tbourn/x402-media-gateway/internal/payment"
)

type probeOptions struct {
	baseURL string
	prompt  string
	quality string
	payment string
	timeout time.Duration
}

func newProbeCommand() *cobra.Command {
	var opts probeOptions
	cmd := &cobra.Command{
		Use:   "probe ROUTE",
		Short: "Call a paid route and print the response or the 402 challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:3402", "Gateway base URL")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "Prompt (route default when empty)")
	cmd.Flags().StringVarP(&opts.quality, "quality", "q", "", "Quality tier (route default when empty)")
	cmd.Flags().StringVar(&opts.payment, "payment", "", "Base64 X-PAYMENT header value")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Request timeout")
	return cmd
}

func probe(cmd *cobra.Command, opts probeOptions, route string) error {
	u, err := url.Parse(strings.TrimRight(opts.baseURL, "/") + "/" + strings.TrimLeft(route, "/"))
	if err != nil {
		return fmt.Errorf("gateway url: %w", err)
	}
	q := u.Query()
	if opts.prompt != "" {
		q.Set("prompt", opts.prompt)
	}
	if opts.quality != "" {
		q.Set("quality", opts.quality)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if opts.payment != "" {
		req.Header.Set(payment.HeaderPayment, opts.payment)
	}

	start := time.Now()
	resp, err := (&http.Client{Timeout: opts.timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", u, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "GET %s -> %s (%s, %s)\n", u, resp.Status, time.Since(start).Round(time.Millisecond), humanize.Bytes(uint64(len(body))))
	if hdr := resp.Header.Get(payment.HeaderPaymentResponse); hdr != "" {
		if raw, err := base64.StdEncoding.DecodeString(hdr); err == nil {
			fmt.Fprintf(out, "%s: %s\n", payment.HeaderPaymentResponse, raw)
		}
	}
	fmt.Fprintln(out, indentJSON(body))

	switch {
	case resp.StatusCode == http.StatusPaymentRequired && opts.payment == "":
		// The challenge is the expected answer to an unpaid probe.
		return nil
	case resp.StatusCode >= 400:
		return fmt.Errorf("probe failed with %s", resp.Status)
	}
	return nil
}

func indentJSON(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(body)
	}
	return string(b)
}
