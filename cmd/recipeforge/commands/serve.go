package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/recipeforge/recipeforge/internal/api"
	"github.com/recipeforge/recipeforge/internal/config"
	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/notify"
	"github.com/recipeforge/recipeforge/internal/retention"
	"github.com/recipeforge/recipeforge/internal/runlog"
	_ "github.com/recipeforge/recipeforge/internal/steps" // register built-in step types
	"github.com/recipeforge/recipeforge/internal/telemetry"
)

// NewServeCommand returns `recipeforge serve`, the optional HTTP control
// surface (SPEC_FULL.md §8). It is additive: nothing in the core engine
// depends on this command, and `run` never starts it.
func NewServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP control surface for submitting and polling recipe runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port > 0 {
				cfg.HTTPPort = port
			}

			shutdown, err := telemetry.Init(cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer shutdown(context.Background())

			store := runlog.New()
			notifier := notify.New(cfg.Webhook.URL, cfg.Webhook.Secret, time.Duration(cfg.Webhook.TimeoutMS)*time.Millisecond)
			exec := executor.New(log.Logger, executor.WithStepTimeout(cfg.StepTimeout))
			handlers := api.NewHandlers(store, notifier, exec, cfg)

			janitor := retention.New(store, cfg.RunRetention, retention.DefaultInterval)
			janitorCtx, cancelJanitor := context.WithCancel(context.Background())
			go janitor.Start(janitorCtx)
			defer cancelJanitor()

			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:      api.NewRouter(handlers),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			go func() {
				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
				<-sigChan

				log.Info().Msg("🛑 shutting down gracefully...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			log.Info().Int("port", cfg.HTTPPort).Msg("🚀 recipeforge control surface listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port to listen on (defaults to config)")
	return cmd
}
