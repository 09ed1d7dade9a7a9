package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pano/internal/api"
	"github.com/kiesman99/pano/internal/logging"
	"github.com/kiesman99/pano/internal/server"
	"github.com/kiesman99/pano/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the stitching API",
	Long: `Start an HTTP server that stitches images on the server's file system.

The configuration is loaded once at start-up and can be reloaded through
POST /api/v1/config. With --db every stitch is recorded in a SQLite job
history served under /api/v1/jobs. Stitch requests may only write their
output below --output-dir.

Examples:
  # Start server on default port 8080
  pano serve

  # Keep a job history
  pano serve --db jobs.db

  # Start server with custom bind address
  pano serve --bind 0.0.0.0 --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 2*time.Minute, "request timeout")
	serveCmd.Flags().String("db", "", "SQLite file for the job history (disabled when empty)")
	serveCmd.Flags().String("output-dir", "", "directory that output_path in stitch requests is resolved against (output_path rejected when empty)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("server.db", serveCmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("server.output-dir", serveCmd.Flags().Lookup("output-dir"))
}

// newRouter mounts apiServer under /api/v1 with the standard middleware.
func newRouter(apiServer *server.Server, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))

	// CORS for the read-only endpoints
	r.Use(server.CORS)

	r.Route("/api/v1", func(r chi.Router) {
		handler := api.HandlerWithOptions(apiServer, api.ChiServerOptions{
			BaseRouter:       r,
			ErrorHandlerFunc: apiServer.BindError,
		})
		r.Mount("/", handler)
	})

	// Unversioned health endpoint for load balancers
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

func serverOptions() []server.Option {
	var opts []server.Option
	if dir := viper.GetString("server.output-dir"); dir != "" {
		opts = append(opts, server.WithOutputDir(dir))
	}
	return opts
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")
	addr := fmt.Sprintf("%s:%d", bind, port)

	b, err := newBridge()
	if err != nil {
		return err
	}

	var jobs *store.Store
	if path := viper.GetString("server.db"); path != "" {
		if jobs, err = store.Open(path); err != nil {
			return err
		}
		defer func() { _ = jobs.Close() }()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           newRouter(server.NewServer(b, jobs, serverOptions()...), timeout),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-cmd.Context().Done()

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logging.Logger().Error("server shutdown error", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting pano server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "API description: http://%s/api/v1/openapi.json\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Stitch endpoint: http://%s/api/v1/stitch\n", addr)

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-done
	return nil
}
