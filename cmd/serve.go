package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/stampmaker/internal/config"
	"github.com/lehigh-university-libraries/stampmaker/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		port      string
		staticDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stamp studio JSON API",
		Long: `Starts the Stampmaker JSON API on the specified port.

Each browser session holds its own caption list, reference images, style,
password input and gallery in memory. Sessions are lost on restart.`,
		Example: `  # Start server on default port 8888
  stampmaker serve

  # Start server on custom port with a front end in ./web
  stampmaker serve --port 3000 --static web`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, func(cfg *config.Config) {
				if port != "" {
					cfg.Port = port
				}
			})
			if err != nil {
				return err
			}

			handler := handlers.New(a.studio, a.env, staticDir)

			// Set up routes
			mux := http.NewServeMux()
			handler.Routes(mux)

			addr := ":" + a.cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Stampmaker interface available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"provider", a.cfg.Provider,
					"key_state", a.probe.State())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from config, 8888)")
	cmd.Flags().StringVar(&staticDir, "static", "static", "Directory holding the browser front end")

	return cmd
}
