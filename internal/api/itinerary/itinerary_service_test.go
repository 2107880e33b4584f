package itinerary

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

func setupItineraryServiceTest(t *testing.T) (*ServiceImpl, *MockRepository, *MockGenerator) {
	t.Helper()
	repo := new(MockRepository)
	gen := new(MockGenerator)
	gen.On("Model").Return("gemini-2.0-flash").Maybe()

	logger := slog.New(slog.DiscardHandler)
	store := NewStore(repo, logger)
	service := NewService(repo, gen, store, 0.5, logger)
	return service, repo, gen
}

func storedItinerary(userID uuid.UUID) *types.Itinerary {
	return &types.Itinerary{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          "Boracay Long Weekend",
		Destination:    "Boracay, Philippines",
		DurationDays:   1,
		Transportation: []string{"tricycle"},
		Interests:      []string{"beaches"},
	}
}

func TestCreateItinerary(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("creates a record with a default title", func(t *testing.T) {
		service, repo, _ := setupItineraryServiceTest(t)
		repo.On("CreateItinerary", mock.Anything, mock.MatchedBy(func(it types.Itinerary) bool {
			return it.UserID == userID && it.Title == "Trip to Palawan" && it.Days == nil
		})).Return(nil).Once()

		it, err := service.CreateItinerary(ctx, userID, types.CreateItineraryRequest{
			Destination:    "Palawan",
			DurationDays:   4,
			Transportation: []string{"van"},
			Interests:      []string{"island hopping"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Trip to Palawan", it.Title)
		assert.NotEqual(t, uuid.Nil, it.ID)
		repo.AssertExpectations(t)
	})

	t.Run("rejects invalid parameters without touching storage", func(t *testing.T) {
		service, repo, _ := setupItineraryServiceTest(t)

		_, err := service.CreateItinerary(ctx, userID, types.CreateItineraryRequest{
			Destination:  "",
			DurationDays: 0,
		})
		assert.ErrorIs(t, err, types.ErrBadRequest)
		repo.AssertNotCalled(t, "CreateItinerary")
	})
}

func TestGenerateItinerary(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("standard generation end to end", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(prompt string) bool {
			return prompt != ""
		}), mock.Anything).Return(textResponse("```json\n"+validDayJSON+"\n```"), nil).Once()
		repo.On("SaveInteraction", mock.Anything, mock.MatchedBy(func(i types.LlmInteraction) bool {
			return i.Outcome == "ok" && i.ItineraryID == it.ID && i.Prompt != "" && i.SanitizedText != ""
		})).Return(nil).Once()
		repo.On("UpdateItineraryData", mock.Anything, it.ID, mock.Anything).Return(nil).Once()

		days, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, "Island Arrival", days[0].Title)
		repo.AssertExpectations(t)
		gen.AssertExpectations(t)
	})

	t.Run("generation opens an editing session", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(validDayJSON), nil).Once()
		repo.On("SaveInteraction", mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("UpdateItineraryData", mock.Anything, it.ID, mock.Anything).Return(nil).Once()

		_, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		require.NoError(t, err)

		day, err := service.store.GetDay(ctx, userID, it.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, "Island Arrival", day.Title)
	})

	t.Run("another user's itinerary is not found", func(t *testing.T) {
		service, repo, _ := setupItineraryServiceTest(t)
		it := storedItinerary(uuid.New())
		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()

		_, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("regeneration is premium only", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)
		it.Days = []types.ItineraryDay{{Day: 1, Title: "Existing"}}
		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()

		_, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		assert.ErrorIs(t, err, types.ErrPremiumRequired)
		gen.AssertNotCalled(t, "GenerateResponse")
	})

	t.Run("premium regeneration replaces the itinerary", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)
		it.Days = []types.ItineraryDay{{Day: 1, Title: "Existing"}}

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(validDayJSON), nil).Once()
		repo.On("SaveInteraction", mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("UpdateItineraryData", mock.Anything, it.ID, mock.Anything).Return(nil).Once()

		days, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierPremium)
		require.NoError(t, err)
		assert.Equal(t, "Island Arrival", days[0].Title)
	})

	t.Run("invocation failure is audited and wrapped", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("quota exceeded")).Once()
		repo.On("SaveInteraction", mock.Anything, mock.MatchedBy(func(i types.LlmInteraction) bool {
			return i.Outcome == "invocation_error"
		})).Return(nil).Once()

		_, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		assert.ErrorIs(t, err, types.ErrLLMInvocation)
		repo.AssertNotCalled(t, "UpdateItineraryData")
		repo.AssertExpectations(t)
	})

	t.Run("unparseable response is audited and rejected", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse("Sorry, I can't help with that."), nil).Once()
		repo.On("SaveInteraction", mock.Anything, mock.MatchedBy(func(i types.LlmInteraction) bool {
			return i.Outcome == "parse_error"
		})).Return(nil).Once()

		_, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		var parseErr *types.ResponseParseError
		assert.ErrorAs(t, err, &parseErr)
		repo.AssertNotCalled(t, "UpdateItineraryData")
	})

	t.Run("schema violation is audited and rejected", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(`{"days": []}`), nil).Once()
		repo.On("SaveInteraction", mock.Anything, mock.MatchedBy(func(i types.LlmInteraction) bool {
			return i.Outcome == "schema_error"
		})).Return(nil).Once()

		_, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		var schemaErr *types.SchemaValidationError
		assert.ErrorAs(t, err, &schemaErr)
		repo.AssertNotCalled(t, "UpdateItineraryData")
	})

	t.Run("persistence failure fails the generation", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(validDayJSON), nil).Once()
		repo.On("SaveInteraction", mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("UpdateItineraryData", mock.Anything, it.ID, mock.Anything).
			Return(assert.AnError).Once()

		_, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		assert.Error(t, err)
	})

	t.Run("audit failure does not fail the generation", func(t *testing.T) {
		service, repo, gen := setupItineraryServiceTest(t)
		it := storedItinerary(userID)

		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()
		gen.On("GenerateResponse", mock.Anything, mock.Anything, mock.Anything).
			Return(textResponse(validDayJSON), nil).Once()
		repo.On("SaveInteraction", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		repo.On("UpdateItineraryData", mock.Anything, it.ID, mock.Anything).Return(nil).Once()

		days, err := service.GenerateItinerary(ctx, userID, it.ID, types.TierStandard)
		require.NoError(t, err)
		assert.Len(t, days, 1)
	})
}

func TestGetItinerary(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("session edits overlay the stored document", func(t *testing.T) {
		service, repo, _ := setupItineraryServiceTest(t)
		it := storedItinerary(userID)
		it.Days = testDays()
		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil)
		repo.On("UpdateItineraryData", mock.Anything, it.ID, mock.Anything).Return(nil).Maybe()

		service.store.Open(it.ID, userID, testDays())
		_, err := service.store.ReorderActivity(ctx, userID, it.ID, 1, types.ReorderActivityRequest{From: 0, To: 2})
		require.NoError(t, err)

		got, err := service.GetItinerary(ctx, userID, it.ID)
		require.NoError(t, err)
		assert.Equal(t, "B", got.Days[0].Activities[0].Activity)
	})

	t.Run("hides other users' records", func(t *testing.T) {
		service, repo, _ := setupItineraryServiceTest(t)
		it := storedItinerary(uuid.New())
		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil).Once()

		_, err := service.GetItinerary(ctx, userID, it.ID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestDeleteItinerary(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("closes the session and deletes the record", func(t *testing.T) {
		service, repo, _ := setupItineraryServiceTest(t)
		it := storedItinerary(userID)
		it.Days = testDays()
		repo.On("GetItinerary", mock.Anything, it.ID).Return(it, nil)
		repo.On("DeleteItinerary", mock.Anything, it.ID).Return(nil).Once()

		service.store.Open(it.ID, userID, it.Days)
		require.NoError(t, service.DeleteItinerary(ctx, userID, it.ID))

		_, open := service.store.Days(it.ID)
		assert.False(t, open)
		repo.AssertExpectations(t)
	})
}
