// Command endnotefix unpacks an ePub, numbers placeholder endnotes, removes
// empty text frames, prefixes table-of-contents chapters with their ordinal
// and repacks the result as <name>_fixed.epub.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
