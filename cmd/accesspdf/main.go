// Command accesspdf analyses documents for accessibility problems and writes
// remediated copies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/wudi/accesspdf/providers/tesseract"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "accesspdf: %v\n", err)
		stop()
		os.Exit(1)
	}
}
