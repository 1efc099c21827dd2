package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookwise/bookwise/internal/chat"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/library"
	"github.com/bookwise/bookwise/internal/observability"
)

type ReadinessCheck func(ctx context.Context) error

// ChatExecutor runs one chat instruction on behalf of a resolved caller.
type ChatExecutor interface {
	Execute(ctx context.Context, instruction, callerID string) chat.Result
}

// AuditArchiver ships pending audit rows to object storage.
type AuditArchiver interface {
	ArchiveOnce(ctx context.Context) (int, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Store             library.Store
	MemberChat        ChatExecutor
	AdminChat         ChatExecutor
	Archiver          AuditArchiver
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(cfg, deps, deps.MemberChat, w, r)
	})
	protected.HandleFunc("POST /v1/admin/chat", func(w http.ResponseWriter, r *http.Request) {
		handleAdminChat(cfg, deps, w, r)
	})

	protected.HandleFunc("GET /v1/users", func(w http.ResponseWriter, r *http.Request) {
		handleListUsers(deps, w, r)
	})
	protected.HandleFunc("POST /v1/users", func(w http.ResponseWriter, r *http.Request) {
		handleCreateUser(cfg, deps, w, r)
	})
	protected.HandleFunc("POST /v1/users/ensure", func(w http.ResponseWriter, r *http.Request) {
		handleEnsureUser(deps, w, r)
	})

	protected.HandleFunc("GET /v1/books", func(w http.ResponseWriter, r *http.Request) {
		handleListBooks(deps, w, r)
	})
	protected.HandleFunc("POST /v1/books", func(w http.ResponseWriter, r *http.Request) {
		handleCreateBook(cfg, deps, w, r)
	})

	protected.HandleFunc("GET /v1/fines", func(w http.ResponseWriter, r *http.Request) {
		handleListFines(deps, w, r)
	})
	protected.HandleFunc("POST /v1/fines", func(w http.ResponseWriter, r *http.Request) {
		handleCreateFine(cfg, deps, w, r)
	})
	protected.HandleFunc("PATCH /v1/fines/{id}/pay", func(w http.ResponseWriter, r *http.Request) {
		handlePayFine(cfg, deps, w, r)
	})

	protected.HandleFunc("GET /v1/summary", func(w http.ResponseWriter, r *http.Request) {
		handleSummary(deps, w, r)
	})
	protected.HandleFunc("GET /v1/recent/users", func(w http.ResponseWriter, r *http.Request) {
		handleRecentUsers(deps, w, r)
	})
	protected.HandleFunc("GET /v1/recent/fines", func(w http.ResponseWriter, r *http.Request) {
		handleRecentFines(deps, w, r)
	})

	protected.HandleFunc("POST /v1/audit/archive", func(w http.ResponseWriter, r *http.Request) {
		handleAuditArchive(cfg, deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/chat", protectedHandler)
	mux.Handle("POST /v1/admin/chat", protectedHandler)
	mux.Handle("GET /v1/users", protectedHandler)
	mux.Handle("POST /v1/users", protectedHandler)
	mux.Handle("POST /v1/users/ensure", protectedHandler)
	mux.Handle("GET /v1/books", protectedHandler)
	mux.Handle("POST /v1/books", protectedHandler)
	mux.Handle("GET /v1/fines", protectedHandler)
	mux.Handle("POST /v1/fines", protectedHandler)
	mux.Handle("PATCH /v1/fines/{id}/pay", protectedHandler)
	mux.Handle("GET /v1/summary", protectedHandler)
	mux.Handle("GET /v1/recent/users", protectedHandler)
	mux.Handle("GET /v1/recent/fines", protectedHandler)
	mux.Handle("POST /v1/audit/archive", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckLibraryDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Library.DSN == "" {
			return errors.New("library dsn is not configured")
		}
		return nil
	}
}

func CheckStoreHealth(store library.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("library store is not configured")
		}
		return store.HealthCheck(ctx)
	}
}

// ArchivePinger reports whether the archive bucket is reachable.
type ArchivePinger interface {
	Ping(ctx context.Context) error
}

func CheckArchiveStore(store ArchivePinger) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return nil
		}
		return store.Ping(ctx)
	}
}

func CheckArchiveConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.Archive.Enabled {
			return nil
		}
		if cfg.Archive.Endpoint == "" {
			return errors.New("archive endpoint is not configured")
		}
		if cfg.Archive.Bucket == "" {
			return errors.New("archive bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
