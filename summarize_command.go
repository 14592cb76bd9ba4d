package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

func newSummarizeCommand(cfg *engine.Config) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summarize <youtube-url>",
		Short: "Summarize one video and print the Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newOrchestrator(*cfg).Summarize(cmd.Context(), args[0])
			if err != nil {
				e := engine.AsError(err)
				return fmt.Errorf("%s (%s)", e.Message, e.Code)
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(w, "# %s\n\n%s\n", out.Title, out.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}
