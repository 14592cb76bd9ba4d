// Package mcptools exposes the summarizer as an MCP tool.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// Summarizer runs the whole summarise flow for one URL.
type Summarizer interface {
	Summarize(ctx context.Context, rawURL string) (*engine.VideoSummary, error)
}

// RegisterTools registers youtube_summarize on server.
func RegisterTools(server *mcp.Server, s Summarizer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_summarize",
		Description: "Summarize a YouTube video. Fetches captions (or transcribes the audio when there are none) and returns the video id, title, thumbnail and a Markdown summary with key points.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, OpenWorldHint: ptr(true)},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SummarizeInput) (*mcp.CallToolResult, *engine.VideoSummary, error) {
		if strings.TrimSpace(input.YouTubeURL) == "" {
			return nil, nil, errors.New("youtubeUrl is required")
		}
		out, err := s.Summarize(ctx, input.YouTubeURL)
		if err != nil {
			return nil, nil, toolError(err)
		}
		return nil, out, nil
	})
}

// toolError keeps tool errors as client-safe as the REST envelope.
func toolError(err error) error {
	e := engine.AsError(err)
	if len(e.Details) > 0 {
		var parts []string
		for field, msgs := range e.Details {
			parts = append(parts, field+": "+strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%s [%s] (%s)", e.Message, e.Code, strings.Join(parts, ", "))
	}
	return fmt.Errorf("%s [%s]", e.Message, e.Code)
}

func ptr[T any](v T) *T { return &v }
