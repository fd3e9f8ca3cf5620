// Command mediagw runs the x402 media gateway and its maintenance tasks.
//
//	mediagw serve             start the HTTP gateway and the cleanup worker
//	mediagw migrate           create or update the artifact table
//	mediagw cleanup           run one expiry sweep and exit
//	mediagw routes validate   check a route table file
//	mediagw routes list       print a route table with prices
//	mediagw probe ROUTE       call a paid route and print the answer
//
// Configuration comes from the environment; a .env file in the working
// directory is loaded first when present.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

// @title        x402 Media Gateway
// @version      0.1.0
// @description  Pay-per-request image and video generation behind the x402 payment protocol.
// @BasePath     /
func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
