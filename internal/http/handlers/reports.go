package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/garbagewatch/internal/domain/report"
	"github.com/geocoder89/garbagewatch/internal/domain/user"
	"github.com/geocoder89/garbagewatch/internal/http/middlewares"
	"github.com/geocoder89/garbagewatch/internal/service/reports"
	"github.com/gin-gonic/gin"
)

const reportsTimeout = 3 * time.Second

type ReportService interface {
	Submit(ctx context.Context, author user.User, req report.SubmitRequest) (report.Report, error)
	List(ctx context.Context) ([]report.Report, error)
	UpdateStatus(ctx context.Context, id, status string) (report.Report, error)
	Delete(ctx context.Context, id string) error
}

type ReportsHandler struct {
	reports ReportService
	log     *slog.Logger
}

func NewReportsHandler(svc ReportService, log *slog.Logger) *ReportsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ReportsHandler{reports: svc, log: log}
}

func (h *ReportsHandler) Submit(ctx *gin.Context) {
	author, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Please authenticate")
		return
	}

	var req report.SubmitRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), reportsTimeout)
	defer cancel()

	created, err := h.reports.Submit(cctx, author, req)
	if err != nil {
		h.respondServiceError(ctx, err, "Could not submit report")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *ReportsHandler) List(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), reportsTimeout)
	defer cancel()

	items, err := h.reports.List(cctx)
	if err != nil {
		h.respondServiceError(ctx, err, "Could not list reports")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

func (h *ReportsHandler) UpdateStatus(ctx *gin.Context) {
	var req report.UpdateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), reportsTimeout)
	defer cancel()

	updated, err := h.reports.UpdateStatus(cctx, ctx.Param("id"), req.Status)
	if err != nil {
		h.respondServiceError(ctx, err, "Could not update report")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *ReportsHandler) Delete(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), reportsTimeout)
	defer cancel()

	if err := h.reports.Delete(cctx, ctx.Param("id")); err != nil {
		h.respondServiceError(ctx, err, "Could not delete report")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Detection deleted"})
}

func (h *ReportsHandler) respondServiceError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, reports.ErrInvalidID),
		errors.Is(err, reports.ErrInvalidStatus),
		errors.Is(err, reports.ErrInvalidSeverity):
		RespondBadRequest(ctx, err.Error(), nil)
	case errors.Is(err, reports.ErrNotFound):
		RespondNotFound(ctx, "Report not found")
	default:
		h.log.ErrorContext(ctx.Request.Context(), "report operation failed", "err", err)
		RespondInternal(ctx, fallback)
	}
}
