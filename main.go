// ytsum turns YouTube videos into Markdown summaries.
//
// `ytsum serve` runs the REST API (POST /api/summarize) and the MCP tool
// server; `ytsum summarize <url>` prints one summary to stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
