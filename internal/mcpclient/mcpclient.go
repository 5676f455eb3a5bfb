// Package mcpclient is an outbound MCP client used by the mcp leaf step.
// It mirrors the two server transports the original Python implementation
// supports (recipe_executor/llm_utils/mcp.py's get_mcp_server: an HTTP
// transport keyed on "url" and a stdio transport keyed on "command"),
// built on mark3labs/mcp-go's client package instead of pydantic-ai's.
package mcpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// ServerConfig is the rendered `server` mapping from a mcp step's config.
// Exactly one of URL or Command must be set.
type ServerConfig struct {
	URL string

	Command string
	Args    []string
	Env     map[string]string
}

// CallTool connects to the server described by cfg, invokes toolName with
// arguments, and returns the tool's result content as a plain string. The
// connection is closed before CallTool returns — the mcp step is a single
// request/response leaf, not a long-lived session.
func CallTool(ctx context.Context, cfg ServerConfig, toolName string, arguments map[string]interface{}, timeout time.Duration) (string, error) {
	c, err := newClient(cfg)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := c.Start(ctx); err != nil {
		return "", fmt.Errorf("mcp: start client transport: %w", err)
	}

	if _, err := c.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		return "", fmt.Errorf("mcp: initialize session: %w", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = arguments

	result, err := c.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp: call tool %q: %w", toolName, err)
	}
	if result.IsError {
		return "", fmt.Errorf("mcp: tool %q reported an error: %s", toolName, contentText(result.Content))
	}

	return contentText(result.Content), nil
}

func newClient(cfg ServerConfig) (*client.Client, error) {
	switch {
	case cfg.URL != "":
		return client.NewStreamableHttpClient(cfg.URL)

	case cfg.Command != "":
		env := make([]string, 0, len(cfg.Env))
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		return client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)

	default:
		return nil, fmt.Errorf("mcp: server config must set either \"url\" or \"command\"")
	}
}

// contentText flattens an MCP tool result's content blocks down to a
// single string for storage under the step's output_key — recipes treat
// the result as opaque templated text, not a structured MCP payload.
func contentText(content []mcp.Content) string {
	var out string
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
		}
	}
	return out
}
