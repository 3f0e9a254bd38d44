package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bioma-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scoring HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      buildRouter(e),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

// buildRouter assembles the API routes over the wired subsystems.
func buildRouter(e *env) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/scores/{id}", func(w http.ResponseWriter, req *http.Request) {
			score, err := e.engine.CalculateScore(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, score)
		})

		r.Post("/scores/batch", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				IDs []string `json:"ids"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			ids := body.IDs
			if len(ids) == 0 {
				var err error
				ids, err = e.store.ListCompanyIDs(req.Context())
				if err != nil {
					writeError(w, err)
					return
				}
			}
			scores, err := e.engine.BatchCalculate(req.Context(), ids)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"requested": len(ids),
				"scored":    len(scores),
				"scores":    scores,
			})
		})

		r.Get("/scores/{id}", func(w http.ResponseWriter, req *http.Request) {
			score, err := e.store.PreviousScore(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			if score == nil {
				http.Error(w, `{"error":"not scored yet"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, score)
		})

		r.Get("/companies/{id}/acquirers", func(w http.ResponseWriter, req *http.Request) {
			company, err := e.store.GetCompany(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			matches, err := e.matcher.Match(req.Context(), company, cfg.Matcher.TopN, cfg.Matcher.MinScore)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, matches)
		})

		r.Get("/companies/{id}/cliff-matches", func(w http.ResponseWriter, req *http.Request) {
			company, err := e.store.GetCompany(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, err)
				return
			}
			matches, err := e.matcher.FindPatentCliffMatches(req.Context(), company, cfg.Matcher.CliffYearsAhead)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, matches)
		})

		r.Get("/watchlist", func(w http.ResponseWriter, req *http.Request) {
			entries, err := e.store.ListWatchlist(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, entries)
		})

		r.Post("/watchlist/check", func(w http.ResponseWriter, req *http.Request) {
			alerts, err := e.manager.CheckAlerts(req.Context(), e.engine)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"alerts": alerts,
				"fired":  len(alerts),
			})
		})
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if eris.Is(err, store.ErrNotFound) {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
