package itinerary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"

	"github.com/lakbayhq/lakbay-api/app/observability/metrics"
	"github.com/lakbayhq/lakbay-api/internal/types"
)

const defaultTemperature = 0.5

// generationCacheTTL absorbs accidental duplicate generation requests for
// the same parameters; deliberate regeneration bypasses the cache.
const generationCacheTTL = 5 * time.Minute

// generator is the slice of the Gemini client the orchestrator needs.
type generator interface {
	Model() string
	GenerateResponse(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for itinerary records and the
// generation pipeline.
type Service interface {
	CreateItinerary(ctx context.Context, userID uuid.UUID, req types.CreateItineraryRequest) (*types.Itinerary, error)
	GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error)
	GetUserItineraries(ctx context.Context, userID uuid.UUID, destinationFilter string) ([]*types.Itinerary, error)
	DeleteItinerary(ctx context.Context, userID, itineraryID uuid.UUID) error
	GenerateItinerary(ctx context.Context, userID, itineraryID uuid.UUID, tier types.Tier) ([]types.ItineraryDay, error)
}

type ServiceImpl struct {
	logger      *slog.Logger
	repo        Repository
	aiClient    generator
	store       *Store
	temperature float32

	group       singleflight.Group
	resultCache *cache.Cache
}

// NewService creates the itinerary service. Temperature <= 0 falls back to
// the default.
func NewService(repo Repository, aiClient generator, store *Store, temperature float32, logger *slog.Logger) *ServiceImpl {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		aiClient:    aiClient,
		store:       store,
		temperature: temperature,
		resultCache: cache.New(generationCacheTTL, 10*time.Minute),
	}
}

// CreateItinerary creates a record from the planning-form payload. The
// itinerary_data document stays empty until the first generation.
func (s *ServiceImpl) CreateItinerary(ctx context.Context, userID uuid.UUID, req types.CreateItineraryRequest) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "CreateItinerary", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("itinerary.destination", req.Destination),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateItinerary"), slog.String("userID", userID.String()))

	params := types.TripParameters{
		Destination:    req.Destination,
		DurationDays:   req.DurationDays,
		Budget:         req.Budget,
		Transportation: req.Transportation,
		Interests:      req.Interests,
		Lodging:        req.Lodging,
		Tier:           types.TierStandard,
	}
	if err := params.Validate(); err != nil {
		span.SetStatus(codes.Error, "Invalid trip parameters")
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Trip to %s", req.Destination)
	}

	it := types.Itinerary{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          title,
		Destination:    req.Destination,
		DurationDays:   req.DurationDays,
		Budget:         req.Budget,
		Transportation: req.Transportation,
		Interests:      req.Interests,
		Lodging:        req.Lodging,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.repo.CreateItinerary(ctx, it); err != nil {
		l.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create itinerary")
		return nil, err
	}

	l.InfoContext(ctx, "Itinerary created", slog.String("itineraryID", it.ID.String()))
	span.SetStatus(codes.Ok, "Itinerary created")
	return &it, nil
}

// GetItinerary fetches one record, overlaying any unsaved in-memory edits
// from the open editing session, which are authoritative for the view.
func (s *ServiceImpl) GetItinerary(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error) {
	it, err := s.loadOwned(ctx, userID, itineraryID)
	if err != nil {
		return nil, err
	}
	if days, ok := s.store.Days(itineraryID); ok {
		it.Days = days
	}
	return it, nil
}

func (s *ServiceImpl) GetUserItineraries(ctx context.Context, userID uuid.UUID, destinationFilter string) ([]*types.Itinerary, error) {
	return s.repo.GetUserItineraries(ctx, userID, destinationFilter)
}

func (s *ServiceImpl) DeleteItinerary(ctx context.Context, userID, itineraryID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, itineraryID); err != nil {
		return err
	}
	s.store.Close(itineraryID)
	return s.repo.DeleteItinerary(ctx, itineraryID)
}

// GenerateItinerary runs the full pipeline: prompt -> model -> sanitize ->
// parse -> validate -> persist. All-or-nothing; a failure at any stage leaves
// any previously generated itinerary untouched. Concurrent requests for the
// same itinerary are coalesced into a single model call.
func (s *ServiceImpl) GenerateItinerary(ctx context.Context, userID, itineraryID uuid.UUID, tier types.Tier) ([]types.ItineraryDay, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "GenerateItinerary", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.String("itinerary.tier", string(tier)),
	))
	defer span.End()

	it, err := s.loadOwned(ctx, userID, itineraryID)
	if err != nil {
		span.SetStatus(codes.Error, "Itinerary not found")
		return nil, err
	}

	regenerating := it.Days != nil
	if regenerating && tier != types.TierPremium {
		span.SetStatus(codes.Error, "Regeneration requires premium")
		return nil, types.ErrPremiumRequired
	}

	params := types.TripParameters{
		Destination:    it.Destination,
		DurationDays:   it.DurationDays,
		Budget:         it.Budget,
		Transportation: it.Transportation,
		Interests:      it.Interests,
		Lodging:        it.Lodging,
		Tier:           tier,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	v, err, shared := s.group.Do(itineraryID.String(), func() (any, error) {
		return s.generate(ctx, it, params, regenerating)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return nil, err
	}
	if shared {
		s.logger.InfoContext(ctx, "Generation request coalesced with an in-flight one",
			slog.String("itineraryID", itineraryID.String()))
	}
	span.SetStatus(codes.Ok, "Itinerary generated")
	return v.([]types.ItineraryDay), nil
}

func (s *ServiceImpl) generate(ctx context.Context, it *types.Itinerary, params types.TripParameters, regenerating bool) ([]types.ItineraryDay, error) {
	l := s.logger.With(
		slog.String("method", "generate"),
		slog.String("itineraryID", it.ID.String()),
		slog.String("tier", string(params.Tier)),
	)
	m := metrics.Get()
	tierAttr := metric.WithAttributes(attribute.String("tier", string(params.Tier)))
	m.GenerationRequestsTotal.Add(ctx, 1, tierAttr)

	cacheKey := generationCacheKey(it.ID, params)
	if !regenerating {
		if cached, found := s.resultCache.Get(cacheKey); found {
			if days, ok := cached.([]types.ItineraryDay); ok {
				l.InfoContext(ctx, "Serving generation result from cache")
				return days, nil
			}
		}
	}

	prompt := BuildItineraryPrompt(params)
	interaction := types.LlmInteraction{
		UserID:      it.UserID,
		ItineraryID: it.ID,
		Prompt:      prompt,
		ModelUsed:   s.aiClient.Model(),
		Tier:        params.Tier,
	}

	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](s.temperature)}
	start := time.Now()
	response, err := s.aiClient.GenerateResponse(ctx, prompt, config)
	interaction.LatencyMs = int(time.Since(start).Milliseconds())
	if err != nil {
		interaction.Outcome = "invocation_error"
		s.saveInteraction(ctx, interaction)
		m.GenerationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "invocation")))
		l.ErrorContext(ctx, "Model invocation failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", types.ErrLLMInvocation, err)
	}

	var txt string
	for _, candidate := range response.Candidates {
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			txt = candidate.Content.Parts[0].Text
			break
		}
	}
	if txt == "" {
		interaction.Outcome = "invocation_error"
		s.saveInteraction(ctx, interaction)
		m.GenerationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "invocation")))
		return nil, fmt.Errorf("%w: no content in model response", types.ErrLLMInvocation)
	}

	interaction.ResponseText = txt
	interaction.SanitizedText = SanitizeResponse(txt)

	days, err := ParseItineraryResponse(txt)
	if err != nil {
		var parseErr *types.ResponseParseError
		var schemaErr *types.SchemaValidationError
		switch {
		case errors.As(err, &parseErr):
			interaction.Outcome = "parse_error"
			m.GenerationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "parse")))
			l.ErrorContext(ctx, "Model response is not valid JSON", slog.Any("error", err))
		case errors.As(err, &schemaErr):
			interaction.Outcome = "schema_error"
			m.GenerationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "schema")))
			l.ErrorContext(ctx, "Model response failed schema validation",
				slog.Int("day_index", schemaErr.DayIndex),
				slog.Int("activity_index", schemaErr.ActivityIndex),
				slog.String("reason", schemaErr.Reason))
		}
		s.saveInteraction(ctx, interaction)
		return nil, err
	}

	// Lenient checks: model output is non-deterministic, so gaps in what we
	// asked for are logged, never failed.
	if params.Tier == types.TierPremium {
		if missing := MissingPremiumFields(days); len(missing) > 0 {
			l.WarnContext(ctx, "Premium fields missing from generated itinerary", slog.Any("fields", missing))
		}
	}
	if !daysAreContiguous(days, params.DurationDays) {
		l.WarnContext(ctx, "Generated day numbers are not the contiguous requested range",
			slog.Int("requested_days", params.DurationDays))
	}

	interaction.Outcome = "ok"
	s.saveInteraction(ctx, interaction)

	if err := s.repo.UpdateItineraryData(ctx, it.ID, days); err != nil {
		m.GenerationFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "persistence")))
		return nil, fmt.Errorf("failed to persist generated itinerary: %w", err)
	}

	s.store.Open(it.ID, it.UserID, days)
	m.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds(), tierAttr)
	if !regenerating {
		s.resultCache.Set(cacheKey, days, cache.DefaultExpiration)
	}

	l.InfoContext(ctx, "Itinerary generated",
		slog.Int("day_count", len(days)),
		slog.Int("latency_ms", interaction.LatencyMs))
	return days, nil
}

// saveInteraction writes the audit row; a failure here must not fail the
// generation itself.
func (s *ServiceImpl) saveInteraction(ctx context.Context, interaction types.LlmInteraction) {
	if err := s.repo.SaveInteraction(ctx, interaction); err != nil {
		s.logger.WarnContext(ctx, "Failed to save LLM interaction audit row", slog.Any("error", err))
	}
}

// loadOwned fetches a record and hides other users' records behind not-found.
func (s *ServiceImpl) loadOwned(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error) {
	it, err := s.repo.GetItinerary(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if it.UserID != userID {
		return nil, types.ErrNotFound
	}
	return it, nil
}

func daysAreContiguous(days []types.ItineraryDay, duration int) bool {
	if len(days) != duration {
		return false
	}
	for i, d := range days {
		if d.Day != i+1 {
			return false
		}
	}
	return true
}

func generationCacheKey(itineraryID uuid.UUID, params types.TripParameters) string {
	payload, _ := json.Marshal(params)
	sum := sha256.Sum256(payload)
	return itineraryID.String() + ":" + hex.EncodeToString(sum[:8])
}
