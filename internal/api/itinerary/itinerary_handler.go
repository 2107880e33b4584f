package itinerary

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lakbayhq/lakbay-api/internal/api"
	"github.com/lakbayhq/lakbay-api/internal/api/auth"
	"github.com/lakbayhq/lakbay-api/internal/types"
)

// Handler exposes itinerary records, the generation pipeline and the editing
// session over HTTP. Tier is derived from the access token's plan claim.
type Handler struct {
	service Service
	store   *Store
	logger  *slog.Logger
}

func NewHandler(service Service, store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		logger:  logger,
	}
}

func (h *Handler) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "CreateItinerary")
	defer span.End()

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.CreateItineraryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	it, err := h.service.CreateItinerary(ctx, userID, req)
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	span.SetStatus(codes.Ok, "Itinerary created")
	api.WriteJSONResponse(w, r, http.StatusCreated, it)
}

func (h *Handler) GetItineraries(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GetItineraries")
	defer span.End()

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	itineraries, err := h.service.GetUserItineraries(ctx, userID, r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}
	if itineraries == nil {
		itineraries = []*types.Itinerary{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, itineraries)
}

func (h *Handler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GetItinerary")
	defer span.End()

	userID, itineraryID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	it, err := h.service.GetItinerary(ctx, userID, itineraryID)
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

func (h *Handler) DeleteItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "DeleteItinerary")
	defer span.End()

	userID, itineraryID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItinerary(ctx, userID, itineraryID); err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// GenerateItinerary runs the generation pipeline for an existing record.
func (h *Handler) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GenerateItinerary")
	defer span.End()

	userID, itineraryID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	plan, _ := auth.GetUserPlanFromContext(ctx)
	tier := types.TierFromPlan(plan)
	span.SetAttributes(attribute.String("itinerary.tier", string(tier)))

	days, err := h.service.GenerateItinerary(ctx, userID, itineraryID, tier)
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	span.SetStatus(codes.Ok, "Itinerary generated")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"itinerary_id":   itineraryID,
		"itinerary_data": days,
	})
}

func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GetDay")
	defer span.End()

	userID, itineraryID, dayNumber, ok := h.dayIdentity(w, r)
	if !ok {
		return
	}

	day, err := h.store.GetDay(ctx, userID, itineraryID, dayNumber)
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, day)
}

func (h *Handler) ReorderActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "ReorderActivity")
	defer span.End()

	userID, itineraryID, dayNumber, ok := h.dayIdentity(w, r)
	if !ok {
		return
	}

	var req types.ReorderActivityRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	day, err := h.store.ReorderActivity(ctx, userID, itineraryID, dayNumber, req)
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	span.SetStatus(codes.Ok, "Activity reordered")
	api.WriteJSONResponse(w, r, http.StatusOK, day)
}

func (h *Handler) SubstituteActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "SubstituteActivity")
	defer span.End()

	userID, itineraryID, dayNumber, ok := h.dayIdentity(w, r)
	if !ok {
		return
	}

	var req types.SubstituteActivityRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	day, err := h.store.SubstituteActivity(ctx, userID, itineraryID, dayNumber, req)
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	span.SetStatus(codes.Ok, "Activity substituted")
	api.WriteJSONResponse(w, r, http.StatusOK, day)
}

func (h *Handler) GetSaveState(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GetSaveState")
	defer span.End()

	userID, itineraryID, ok := h.requestIdentity(w, r)
	if !ok {
		return
	}

	status, err := h.store.SaveStatus(ctx, userID, itineraryID)
	if err != nil {
		h.writeServiceError(w, r, span, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, status)
}

// requestIdentity pulls the authenticated user and the itinerary path param.
func (h *Handler) requestIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}
	itineraryID, err := uuid.Parse(chi.URLParam(r, "itineraryID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, itineraryID, true
}

func (h *Handler) dayIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, int, bool) {
	userID, itineraryID, ok := h.requestIdentity(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, 0, false
	}
	dayNumber, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || dayNumber < 1 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid day number")
		return uuid.Nil, uuid.Nil, 0, false
	}
	return userID, itineraryID, dayNumber, true
}

// writeServiceError maps error kinds to HTTP statuses. Parse and schema
// failures collapse into one retryable message; the detail lives in logs and
// the llm_interactions audit rows.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var parseErr *types.ResponseParseError
	var schemaErr *types.SchemaValidationError

	switch {
	case errors.Is(err, types.ErrBadRequest):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Itinerary not found")
	case errors.Is(err, types.ErrNotGenerated):
		api.ErrorResponse(w, r, http.StatusConflict, "Itinerary has not been generated yet")
	case errors.Is(err, types.ErrPremiumRequired):
		api.ErrorResponse(w, r, http.StatusForbidden, "Regenerating an itinerary requires a premium plan")
	case errors.As(err, &parseErr), errors.As(err, &schemaErr):
		api.ErrorResponse(w, r, http.StatusBadGateway, "The travel planner returned an unusable response. Please try again.")
	case errors.Is(err, types.ErrLLMInvocation):
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "The travel planner is temporarily unavailable. Please try again.")
	case errors.Is(err, types.ErrMissingAPIKey):
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Generation is not configured on this server")
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled service error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
