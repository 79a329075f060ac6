// Command posctl runs maintenance tasks against the pos dataset without the
// HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"go-pos-ledger/internal/app"
)

func main() {
	root := NewRootCommand(app.Open)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
