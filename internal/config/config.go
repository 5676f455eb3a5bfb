// Package config loads recipeforge's process-wide configuration: the
// defaults for the `run`/`serve`/`validate` CLI surface, following the
// teacher's envStr/envInt/envBool helper pattern exactly. An optional
// recipeforge.toml file is read first (if present in the working
// directory) and overlaid before environment variables are applied, so a
// checked-in config file can set repo-wide defaults while env vars still
// win for per-invocation overrides.
//
// Per-recipe/per-CLI-invocation state (the --context seeds, the recipe
// path) is NOT part of Config — it flows through function arguments, the
// same separation of process config from request-scoped data the teacher
// keeps between internal/config and the per-request handler args.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds process-wide configuration for the recipeforge engine.
type Config struct {
	// LogDir is the default directory the CLI writes log files to
	// (--log-dir overrides this per invocation).
	LogDir string

	// HTTPPort is the default port the optional `serve` control surface
	// listens on.
	HTTPPort int

	// StepTimeout bounds how long each step the executor drives (composite
	// steps included) may run before its context is canceled. It applies
	// alongside a step's own timeout_seconds (run_command) or timeout
	// (mcp), so the shorter of the two wins. Zero means no default timeout
	// is applied.
	StepTimeout time.Duration

	// RunRetention is how long the optional serve surface's in-memory
	// runlog keeps a completed run record before the retention janitor
	// evicts it.
	RunRetention time.Duration

	Telemetry TelemetryConfig
	Webhook   WebhookConfig
}

// TelemetryConfig controls the optional OpenTelemetry tracing spans
// internal/telemetry wraps around executor step execution.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// WebhookConfig configures internal/notify's run-lifecycle webhook
// dispatch from the optional serve control surface. Disabled (URL empty)
// by default — recipe execution from the `run` CLI command never
// dispatches webhooks.
type WebhookConfig struct {
	URL       string
	Secret    string // HMAC-SHA256 signing secret for the X-Recipeforge-Signature header; empty disables signing
	TimeoutMS int
}

// fileOverlay is the shape of an optional recipeforge.toml file, read
// before environment variables so env vars still win.
type fileOverlay struct {
	LogDir       string `toml:"log_dir"`
	HTTPPort     int    `toml:"http_port"`
	StepTimeout  string `toml:"step_timeout"`
	RunRetention string `toml:"run_retention"`
	Telemetry    struct {
		Enabled      bool   `toml:"enabled"`
		OTLPEndpoint string `toml:"otlp_endpoint"`
		ServiceName  string `toml:"service_name"`
	} `toml:"telemetry"`
	Webhook struct {
		URL       string `toml:"url"`
		Secret    string `toml:"secret"`
		TimeoutMS int    `toml:"timeout_ms"`
	} `toml:"webhook"`
}

// Load reads configuration from (in order of increasing precedence) the
// built-in defaults, an optional ./recipeforge.toml file, and environment
// variables.
func Load() *Config {
	overlay := readFileOverlay("recipeforge.toml")

	cfg := &Config{
		LogDir:       "logs",
		HTTPPort:     8080,
		StepTimeout:  0,
		RunRetention: 24 * time.Hour,
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "recipeforge",
		},
	}

	if overlay != nil {
		applyFileOverlay(cfg, overlay)
	}

	cfg.LogDir = envStr("RECIPEFORGE_LOG_DIR", cfg.LogDir)
	cfg.HTTPPort = envInt("RECIPEFORGE_HTTP_PORT", cfg.HTTPPort)
	cfg.StepTimeout = envDuration("RECIPEFORGE_STEP_TIMEOUT", cfg.StepTimeout)
	cfg.RunRetention = envDuration("RECIPEFORGE_RUN_RETENTION", cfg.RunRetention)

	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)

	cfg.Webhook.URL = envStr("RECIPEFORGE_WEBHOOK_URL", cfg.Webhook.URL)
	cfg.Webhook.Secret = envStr("RECIPEFORGE_WEBHOOK_SECRET", cfg.Webhook.Secret)
	if cfg.Webhook.TimeoutMS == 0 {
		cfg.Webhook.TimeoutMS = 5000
	}
	cfg.Webhook.TimeoutMS = envInt("RECIPEFORGE_WEBHOOK_TIMEOUT_MS", cfg.Webhook.TimeoutMS)

	return cfg
}

func readFileOverlay(path string) *fileOverlay {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	var overlay fileOverlay
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return nil
	}
	return &overlay
}

func applyFileOverlay(cfg *Config, overlay *fileOverlay) {
	if overlay.LogDir != "" {
		cfg.LogDir = overlay.LogDir
	}
	if overlay.HTTPPort != 0 {
		cfg.HTTPPort = overlay.HTTPPort
	}
	if overlay.StepTimeout != "" {
		if d, err := time.ParseDuration(overlay.StepTimeout); err == nil {
			cfg.StepTimeout = d
		}
	}
	if overlay.RunRetention != "" {
		if d, err := time.ParseDuration(overlay.RunRetention); err == nil {
			cfg.RunRetention = d
		}
	}
	cfg.Telemetry.Enabled = overlay.Telemetry.Enabled
	if overlay.Telemetry.OTLPEndpoint != "" {
		cfg.Telemetry.OTLPEndpoint = overlay.Telemetry.OTLPEndpoint
	}
	if overlay.Telemetry.ServiceName != "" {
		cfg.Telemetry.ServiceName = overlay.Telemetry.ServiceName
	}
	cfg.Webhook.URL = overlay.Webhook.URL
	cfg.Webhook.Secret = overlay.Webhook.Secret
	cfg.Webhook.TimeoutMS = overlay.Webhook.TimeoutMS
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
