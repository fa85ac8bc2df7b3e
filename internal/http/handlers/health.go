package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
	log    *slog.Logger
}

// NewHealthHandler takes named readiness checks; nil checks are skipped.
func NewHealthHandler(checks map[string]Check, log *slog.Logger) *HealthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HealthHandler{checks: checks, log: log}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz names failing checks only; causes go to the log.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	failed := make([]string, 0)

	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check(cctx); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "readiness check failed", "check", name, "err", err)
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "failed": failed})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
