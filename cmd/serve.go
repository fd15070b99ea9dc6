package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/captable-cli/internal/gateway"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the capitalization table HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(e.Builder, e.Gateway),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter assembles the API surface.
func newRouter(b builder, gw gateway.Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/captable/{ticker}/build", func(w http.ResponseWriter, req *http.Request) {
		ticker := chi.URLParam(req, "ticker")
		force := req.URL.Query().Get("force") == "true"

		result, err := b.Build(req.Context(), ticker, force)
		if err != nil {
			zap.L().Error("api build failed",
				zap.String("ticker", ticker),
				zap.String("request_id", req.Header.Get(requestIDHeader)),
				zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/api/captable/{ticker}", func(w http.ResponseWriter, req *http.Request) {
		ticker := strings.ToUpper(chi.URLParam(req, "ticker"))

		data, err := latestResultJSON(req.Context(), gw, ticker)
		if errors.Is(err, gateway.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no captable stored for " + ticker})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})

	return r
}

// latestResultJSON reads the newest persisted record for a ticker.
func latestResultJSON(ctx context.Context, gw gateway.Gateway, ticker string) ([]byte, error) {
	entries, err := gw.List(ctx, gateway.TickerPrefix(ticker, "captable"))
	if err != nil {
		return nil, err
	}
	var jsonEntries []gateway.Entry
	for _, e := range entries {
		if strings.HasSuffix(e.Key, ".json") {
			jsonEntries = append(jsonEntries, e)
		}
	}
	key := gateway.Latest(jsonEntries)
	if key == "" {
		return nil, gateway.ErrNotFound
	}
	return gw.Read(ctx, key)
}

const requestIDHeader = "X-Request-Id"

// requestID tags every request with a UUID for log correlation.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			req.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, req)
	})
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
