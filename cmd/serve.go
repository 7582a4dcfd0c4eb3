package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pawtrait-studio/pawtrait/internal/artwork"
	"github.com/pawtrait-studio/pawtrait/internal/handlers"
	"github.com/pawtrait-studio/pawtrait/internal/quota"
	"github.com/pawtrait-studio/pawtrait/internal/styles"
	"github.com/pawtrait-studio/pawtrait/internal/upload"
	"github.com/pawtrait-studio/pawtrait/internal/wizard"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port       string
		quotaDB    string
		uploadsDir string
		backend    string
		model      string
		concurrent bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server for the creation wizard",
		Long: `Starts the Pawtrait creation wizard on the specified port.

The wizard walks a visitor through uploading a pet photo, choosing an art
style, previewing two AI-generated variants, and a mocked checkout. Art
generation uses Gemini (GEMINI_API_KEY) or an offline stub backend.`,
		Example: `  # Start server on default port 8888
  pawtrait serve

  # Offline development without an API key
  pawtrait serve --backend stub

  # Custom port and durable quota location
  pawtrait serve --port 3000 --quota-db /var/lib/pawtrait/quota.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := styles.Load()
			if err != nil {
				return err
			}

			store, err := quota.OpenSQLiteStore(quotaDB)
			if err != nil {
				return err
			}
			defer store.Close()
			tracker := quota.NewTracker(store, nil)

			var art artwork.Backend
			switch backend {
			case "stub":
				art = artwork.NewStub()
			default:
				art = artwork.NewGemini(model)
			}

			machine := wizard.NewMachine(artwork.NewClient(art), tracker, upload.NewIngestor(uploadsDir), catalog)
			machine.Concurrent = concurrent

			handler := handlers.New(machine, tracker, catalog, uploadsDir)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/sessions", handler.HandleSessions)
			mux.HandleFunc("/api/sessions/", handler.HandleSessionDetail)
			mux.HandleFunc("/api/styles", handler.HandleStyles)
			mux.HandleFunc("/api/quota", handler.HandleQuota)
			mux.HandleFunc("/", handler.HandleStatic)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Pawtrait studio available", "addr", addr, "url", "http://localhost"+addr, "backend", backend)
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

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&quotaDB, "quota-db", defaultQuotaDB(), "Path to the daily preview quota database")
	cmd.Flags().StringVar(&uploadsDir, "uploads-dir", "uploads", "Directory for uploaded photo previews")
	cmd.Flags().StringVar(&backend, "backend", defaultBackend(), "Art backend: gemini or stub")
	cmd.Flags().StringVar(&model, "model", "", "Gemini model (default "+artwork.DefaultModel+")")
	cmd.Flags().BoolVar(&concurrent, "concurrent", false, "Dispatch the two variant generations in parallel")

	return cmd
}

func defaultQuotaDB() string {
	if path := os.Getenv("PAWTRAIT_QUOTA_DB"); path != "" {
		return path
	}
	return "pawtrait-quota.db"
}

func defaultBackend() string {
	if backend := os.Getenv("PAWTRAIT_BACKEND"); backend != "" {
		return backend
	}
	return "gemini"
}
