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

	"github.com/medscope/litsearch/internal/intent"
	"github.com/medscope/litsearch/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for intent resolution",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAnalyzer(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/v1/resolve", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Input string `json:"input"`
				Count bool   `json:"count"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if body.Input == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input is required"})
				return
			}

			criteria := env.Analyzer.Resolve(req.Context(), body.Input)
			query := intent.CompileQuery(criteria)

			resp := map[string]any{
				"criteria": criteria,
				"query":    query,
			}
			if body.Count {
				if n, err := env.PubMed.Count(req.Context(), query); err != nil {
					zap.L().Warn("pubmed count failed", zap.Error(err))
				} else {
					resp["result_count"] = n
				}
			}
			writeJSON(w, http.StatusOK, resp)
		})

		r.Post("/v1/batch", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Inputs []string `json:"inputs"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if len(body.Inputs) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "inputs is required"})
				return
			}

			results := env.Analyzer.ResolveBatch(req.Context(), body.Inputs)

			type row struct {
				Input    string               `json:"input"`
				Criteria model.SearchCriteria `json:"criteria"`
				Query    string               `json:"query"`
			}
			rows := make([]row, len(results))
			for i, criteria := range results {
				rows[i] = row{
					Input:    body.Inputs[i],
					Criteria: criteria,
					Query:    intent.CompileQuery(criteria),
				}
			}
			writeJSON(w, http.StatusOK, map[string]any{"results": rows})
		})

		r.Get("/v1/stats", func(w http.ResponseWriter, req *http.Request) {
			resp := map[string]any{
				"performance": env.Analyzer.PerfStats(),
				"cache":       env.Analyzer.CacheStats(),
			}
			if env.Store != nil {
				if sum, err := env.Store.Summarize(req.Context()); err != nil {
					zap.L().Warn("history summarize failed", zap.Error(err))
				} else {
					resp["history"] = sum
				}
			}
			writeJSON(w, http.StatusOK, resp)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
