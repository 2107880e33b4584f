package export

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lakbayhq/lakbay-api/internal/api"
	"github.com/lakbayhq/lakbay-api/internal/api/auth"
	"github.com/lakbayhq/lakbay-api/internal/api/itinerary"
	"github.com/lakbayhq/lakbay-api/internal/types"
)

type Handler struct {
	itineraries itinerary.Service
	logger      *slog.Logger
}

func NewHandler(itineraries itinerary.Service, logger *slog.Logger) *Handler {
	return &Handler{
		itineraries: itineraries,
		logger:      logger,
	}
}

// ExportItinerary serves a generated itinerary as csv, pdf or ics. The ics
// format anchors day 1 on the start query date, defaulting to today.
func (h *Handler) ExportItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ExportHandler").Start(r.Context(), "ExportItinerary")
	defer span.End()

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	itineraryID, err := uuid.Parse(chi.URLParam(r, "itineraryID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID")
		return
	}

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("export.format", string(format)))

	start := time.Now()
	if raw := r.URL.Query().Get("start"); raw != "" {
		start, err = time.Parse("2006-01-02", raw)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
			return
		}
	}

	it, err := h.itineraries.GetItinerary(ctx, userID, itineraryID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Itinerary not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to load itinerary for export", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Export failed")
		return
	}
	if it.Days == nil {
		api.ErrorResponse(w, r, http.StatusConflict, "Itinerary has not been generated yet")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("itinerary-%s.%s", itineraryID, format)))

	switch format {
	case FormatPDF:
		err = RenderPDF(w, it)
	case FormatICS:
		err = RenderICS(w, it, start)
	default:
		err = RenderCSV(w, it)
	}
	if err != nil {
		// Headers are already out; all we can do is log.
		span.RecordError(err)
		span.SetStatus(codes.Error, "Render failed")
		h.logger.ErrorContext(ctx, "Failed to render export", slog.Any("error", err),
			slog.String("format", string(format)))
		return
	}
	span.SetStatus(codes.Ok, "Itinerary exported")
}
