package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/fairvalue-cli/internal/model"
	"github.com/sells-group/fairvalue-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the valuation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env := initEnv()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env, st),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *analysisEnv, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/valuations", func(r chi.Router) {
		r.Get("/{ticker}", getValuationHandler(st))
		r.Post("/", postValuationHandler(env, st))
	})

	return r
}

// getValuationHandler returns the most recent saved run for a ticker.
func getValuationHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticker := model.NormalizeTicker(chi.URLParam(r, "ticker"))
		if !model.ValidTicker(ticker) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ticker"})
			return
		}

		run, err := st.LatestRun(r.Context(), ticker)
		if err != nil {
			zap.L().Error("latest run lookup failed", zap.String("ticker", ticker), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
			return
		}
		if run == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs for ticker"})
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

// postValuationHandler runs a fresh analysis, persists it, and returns
// the run.
func postValuationHandler(env *analysisEnv, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Ticker string `json:"ticker"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		ticker := model.NormalizeTicker(req.Ticker)
		if !model.ValidTicker(ticker) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ticker"})
			return
		}

		ctx := r.Context()
		run, err := runAnalysis(ctx, env, ticker, resolveRates(ctx, env))
		if err != nil {
			zap.L().Error("analysis failed", zap.String("ticker", ticker), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analysis failed"})
			return
		}

		if err := st.SaveRun(ctx, run); err != nil {
			zap.L().Error("run save failed", zap.String("ticker", ticker), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save failed"})
			return
		}

		writeJSON(w, http.StatusCreated, run)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
