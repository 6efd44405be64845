// Package main is riskctl, a command-line front end to the RiskSuite360
// analytics core. It reads a CSV price panel and prints JSON results.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// printError writes "kind: message" for analytics errors and the bare
// message for anything else.
func printError(w io.Writer, err error) {
	if kind := domain.KindOf(err); kind != "" {
		fmt.Fprintf(w, "%s: %v\n", kind, err)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
