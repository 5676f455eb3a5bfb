package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/recipeforge/recipeforge/internal/mcpclient"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/rs/zerolog"
)

// mcpServerConfig is the decoded shape of the `server` mapping. URL and
// Command are rendered per call since they may reference context values
// (e.g. a per-run temp directory); Args and Env are passed through
// without rendering.
type mcpServerConfig struct {
	URL     string            `json:"url"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// mcpConfig mirrors the original recipe_executor's McpConfig
// (recipe_executor/steps/mcp.py): server, tool_name, arguments,
// output_key, timeout.
type mcpConfig struct {
	Server    mcpServerConfig        `json:"server"`
	ToolName  string                 `json:"tool_name"`
	OutputKey string                 `json:"output_key"`
	Timeout   int                    `json:"timeout"`
	Arguments map[string]interface{} `json:"arguments"`
}

type mcpStep struct {
	logger zerolog.Logger
	config mcpConfig
}

func newMcpStep(logger zerolog.Logger, raw map[string]interface{}) (Step, error) {
	var cfg mcpConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.ToolName == "" {
		return nil, errMissingField("tool_name")
	}
	if cfg.Server.URL == "" && cfg.Server.Command == "" {
		return nil, errMissingField("server.url or server.command")
	}
	if cfg.OutputKey == "" {
		cfg.OutputKey = "tool_result"
	}
	return &mcpStep{logger: logger, config: cfg}, nil
}

// Execute renders the server URL and command, tool name, output key, and
// every string-valued argument, then calls the named tool on the MCP server and
// stores the result text under output_key.
func (s *mcpStep) Execute(ctx context.Context, rc *recipectx.Context) error {
	url, err := renderString(s.config.Server.URL, rc)
	if err != nil {
		return err
	}
	command, err := renderString(s.config.Server.Command, rc)
	if err != nil {
		return err
	}
	toolName, err := renderString(s.config.ToolName, rc)
	if err != nil {
		return err
	}
	outputKey, err := renderString(s.config.OutputKey, rc)
	if err != nil {
		return err
	}

	args := make(map[string]interface{}, len(s.config.Arguments))
	for k, v := range s.config.Arguments {
		if sv, ok := v.(string); ok {
			rv, err := renderString(sv, rc)
			if err != nil {
				return err
			}
			args[k] = rv
			continue
		}
		args[k] = v
	}

	s.logger.Debug().Str("tool", toolName).Str("url", url).Str("command", command).Msg("invoking mcp tool")

	result, err := mcpclient.CallTool(ctx, mcpclient.ServerConfig{
		URL:     url,
		Command: command,
		Args:    s.config.Server.Args,
		Env:     s.config.Server.Env,
	}, toolName, args, time.Duration(s.config.Timeout)*time.Second)
	if err != nil {
		return fmt.Errorf("mcp step: %w", err)
	}

	rc.Set(outputKey, result)
	return nil
}
