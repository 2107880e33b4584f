package itinerary

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	repo := &RepositoryImpl{
		logger: slog.New(slog.DiscardHandler),
		pgpool: mockPool,
	}
	return repo, mockPool
}

func TestRepositoryGetItinerary(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes lodging and itinerary data", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		itineraryID := uuid.New()
		userID := uuid.New()
		budget := 1200.0
		now := time.Now()

		lodging, err := json.Marshal(types.Lodging{Name: "Sunset Villas", Location: "Station 1"})
		require.NoError(t, err)
		days, err := json.Marshal(testDays())
		require.NoError(t, err)

		rows := pgxmock.NewRows([]string{
			"id", "user_id", "title", "destination", "duration_days", "budget",
			"transportation", "interests", "lodging", "itinerary_data", "created_at", "updated_at",
		}).AddRow(
			itineraryID, userID, "Boracay Long Weekend", "Boracay, Philippines", 2, &budget,
			[]string{"tricycle"}, []string{"beaches"}, lodging, days, now, now,
		)
		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, title")).
			WithArgs(itineraryID).
			WillReturnRows(rows)

		it, err := repo.GetItinerary(ctx, itineraryID)
		require.NoError(t, err)
		assert.Equal(t, "Boracay Long Weekend", it.Title)
		require.NotNil(t, it.Budget)
		assert.Equal(t, 1200.0, *it.Budget)
		require.NotNil(t, it.Lodging)
		assert.Equal(t, "Sunset Villas", it.Lodging.Name)
		require.Len(t, it.Days, 2)
		assert.Equal(t, "Arrival", it.Days[0].Title)

		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("null lodging and data stay nil", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		itineraryID := uuid.New()
		now := time.Now()

		rows := pgxmock.NewRows([]string{
			"id", "user_id", "title", "destination", "duration_days", "budget",
			"transportation", "interests", "lodging", "itinerary_data", "created_at", "updated_at",
		}).AddRow(
			itineraryID, uuid.New(), "Trip", "Cebu", 3, nil,
			[]string{"bus"}, []string{"food"}, nil, nil, now, now,
		)
		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, title")).
			WithArgs(itineraryID).
			WillReturnRows(rows)

		it, err := repo.GetItinerary(ctx, itineraryID)
		require.NoError(t, err)
		assert.Nil(t, it.Budget)
		assert.Nil(t, it.Lodging)
		assert.Nil(t, it.Days)
	})

	t.Run("missing record maps to not found", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		itineraryID := uuid.New()

		mockPool.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, title")).
			WithArgs(itineraryID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetItinerary(ctx, itineraryID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRepositoryUpdateItineraryData(t *testing.T) {
	ctx := context.Background()

	t.Run("overwrites the document", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		itineraryID := uuid.New()

		mockPool.ExpectExec(regexp.QuoteMeta("UPDATE itineraries SET itinerary_data")).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), itineraryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateItineraryData(ctx, itineraryID, testDays())
		require.NoError(t, err)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("zero rows affected maps to not found", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		itineraryID := uuid.New()

		mockPool.ExpectExec(regexp.QuoteMeta("UPDATE itineraries SET itinerary_data")).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), itineraryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateItineraryData(ctx, itineraryID, testDays())
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRepositoryCreateItinerary(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a record", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		it := types.Itinerary{
			ID:             uuid.New(),
			UserID:         uuid.New(),
			Title:          "Trip to Siargao",
			Destination:    "Siargao",
			DurationDays:   5,
			Transportation: []string{"motorbike"},
			Interests:      []string{"surfing"},
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}

		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO itineraries")).
			WithArgs(it.ID, it.UserID, it.Title, it.Destination, it.DurationDays, it.Budget,
				it.Transportation, it.Interests, pgxmock.AnyArg(), pgxmock.AnyArg(), it.CreatedAt, it.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.CreateItinerary(ctx, it))
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestRepositoryDeleteItinerary(t *testing.T) {
	ctx := context.Background()

	t.Run("missing record maps to not found", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		itineraryID := uuid.New()

		mockPool.ExpectExec(regexp.QuoteMeta("DELETE FROM itineraries")).
			WithArgs(itineraryID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.DeleteItinerary(ctx, itineraryID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRepositorySaveInteraction(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts the audit row", func(t *testing.T) {
		repo, mockPool := setupRepositoryTest(t)
		interaction := types.LlmInteraction{
			UserID:      uuid.New(),
			ItineraryID: uuid.New(),
			Prompt:      "Create a detailed 3-day travel itinerary...",
			ModelUsed:   "gemini-2.0-flash",
			Tier:        types.TierStandard,
			LatencyMs:   1200,
			Outcome:     "ok",
		}

		mockPool.ExpectExec(regexp.QuoteMeta("INSERT INTO llm_interactions")).
			WithArgs(interaction.UserID, interaction.ItineraryID, interaction.Prompt,
				interaction.ResponseText, interaction.SanitizedText, interaction.ModelUsed,
				string(interaction.Tier), interaction.LatencyMs, interaction.Outcome).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.SaveInteraction(ctx, interaction))
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}
