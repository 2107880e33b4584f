package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

// Ensure RepositoryImpl implements the Repository interface
var _ Repository = (*RepositoryImpl)(nil)

// DB is the slice of pgxpool.Pool the repository uses. Tests substitute a
// pgxmock pool through it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines the storage contract for itinerary records. The
// itinerary_data column is replaced wholesale on every update; there is no
// partial-field merge for that document.
type Repository interface {
	CreateItinerary(ctx context.Context, it types.Itinerary) error
	GetItinerary(ctx context.Context, itineraryID uuid.UUID) (*types.Itinerary, error)
	GetUserItineraries(ctx context.Context, userID uuid.UUID, destinationFilter string) ([]*types.Itinerary, error)
	UpdateItineraryData(ctx context.Context, itineraryID uuid.UUID, days []types.ItineraryDay) error
	DeleteItinerary(ctx context.Context, itineraryID uuid.UUID) error
	SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool DB
}

func NewRepository(pgxpool *pgxpool.Pool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

// CreateItinerary inserts a new itinerary record.
func (r *RepositoryImpl) CreateItinerary(ctx context.Context, it types.Itinerary) error {
	lodging, err := marshalNullable(it.Lodging)
	if err != nil {
		return fmt.Errorf("failed to encode lodging: %w", err)
	}
	days, err := marshalNullable(it.Days)
	if err != nil {
		return fmt.Errorf("failed to encode itinerary data: %w", err)
	}

	query := `
        INSERT INTO itineraries (
            id, user_id, title, destination, duration_days, budget,
            transportation, interests, lodging, itinerary_data, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )
    `
	_, err = r.pgpool.Exec(ctx, query,
		it.ID, it.UserID, it.Title, it.Destination, it.DurationDays, it.Budget,
		it.Transportation, it.Interests, lodging, days, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to create itinerary: %w", err)
	}
	return nil
}

// GetItinerary retrieves one itinerary record by ID.
func (r *RepositoryImpl) GetItinerary(ctx context.Context, itineraryID uuid.UUID) (*types.Itinerary, error) {
	query := `
        SELECT id, user_id, title, destination, duration_days, budget,
               transportation, interests, lodging, itinerary_data, created_at, updated_at
        FROM itineraries
        WHERE id = $1
    `
	row := r.pgpool.QueryRow(ctx, query, itineraryID)
	it, err := scanItinerary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}
	return it, nil
}

// GetUserItineraries lists a user's itineraries, newest first, optionally
// filtered by a destination substring.
func (r *RepositoryImpl) GetUserItineraries(ctx context.Context, userID uuid.UUID, destinationFilter string) ([]*types.Itinerary, error) {
	query := `
        SELECT id, user_id, title, destination, duration_days, budget,
               transportation, interests, lodging, itinerary_data, created_at, updated_at
        FROM itineraries
        WHERE user_id = $1 AND ($2 = '' OR destination ILIKE '%' || $2 || '%')
        ORDER BY created_at DESC
    `
	rows, err := r.pgpool.Query(ctx, query, userID, destinationFilter)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list itineraries", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer rows.Close()

	var itineraries []*types.Itinerary
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan itinerary row", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan itinerary row: %w", err)
		}
		itineraries = append(itineraries, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itinerary rows: %w", err)
	}
	return itineraries, nil
}

// UpdateItineraryData overwrites the itinerary_data document for a record.
func (r *RepositoryImpl) UpdateItineraryData(ctx context.Context, itineraryID uuid.UUID, days []types.ItineraryDay) error {
	data, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("failed to encode itinerary data: %w", err)
	}

	query := `UPDATE itineraries SET itinerary_data = $1, updated_at = $2 WHERE id = $3`
	tag, err := r.pgpool.Exec(ctx, query, data, time.Now(), itineraryID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update itinerary data", slog.Any("error", err))
		return fmt.Errorf("failed to update itinerary data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// DeleteItinerary removes a record.
func (r *RepositoryImpl) DeleteItinerary(ctx context.Context, itineraryID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM itineraries WHERE id = $1`, itineraryID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to delete itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SaveInteraction records one generation attempt for diagnostics.
func (r *RepositoryImpl) SaveInteraction(ctx context.Context, interaction types.LlmInteraction) error {
	query := `
        INSERT INTO llm_interactions (
            user_id, itinerary_id, prompt, response_text, sanitized_text,
            model_used, tier, latency_ms, outcome
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.pgpool.Exec(ctx, query,
		interaction.UserID, interaction.ItineraryID, interaction.Prompt,
		interaction.ResponseText, interaction.SanitizedText,
		interaction.ModelUsed, string(interaction.Tier), interaction.LatencyMs, interaction.Outcome,
	)
	return err
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *types.Lodging:
		if val == nil {
			return nil, nil
		}
	case []types.ItineraryDay:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func scanItinerary(row pgx.Row) (*types.Itinerary, error) {
	var it types.Itinerary
	var lodging, days []byte
	err := row.Scan(
		&it.ID, &it.UserID, &it.Title, &it.Destination, &it.DurationDays, &it.Budget,
		&it.Transportation, &it.Interests, &lodging, &days, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(lodging) > 0 {
		if err := json.Unmarshal(lodging, &it.Lodging); err != nil {
			return nil, fmt.Errorf("failed to decode lodging: %w", err)
		}
	}
	if len(days) > 0 {
		if err := json.Unmarshal(days, &it.Days); err != nil {
			return nil, fmt.Errorf("failed to decode itinerary data: %w", err)
		}
	}
	return &it, nil
}
