package itinerary

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lakbayhq/lakbay-api/internal/types"
)

func setupStoreTest(t *testing.T) (*Store, *MockRepository) {
	t.Helper()
	repo := new(MockRepository)
	store := NewStore(repo, slog.New(slog.DiscardHandler))
	return store, repo
}

func testDays() []types.ItineraryDay {
	cost := 10.0
	return []types.ItineraryDay{
		{
			Day:   1,
			Title: "Arrival",
			Activities: []types.Activity{
				{Time: "09:00", Activity: "A", Location: "Loc A", Description: "First", EstimatedCost: &cost},
				{Time: "12:00", Activity: "B", Location: "Loc B", Description: "Second"},
				{Time: "15:00", Activity: "C", Location: "Loc C", Description: "Third"},
			},
		},
		{
			Day:   2,
			Title: "Departure",
			Activities: []types.Activity{
				{Time: "10:00", Activity: "D", Location: "Loc D", Description: "Fourth"},
			},
		},
	}
}

func activityNames(day *types.ItineraryDay) []string {
	names := make([]string, len(day.Activities))
	for i, a := range day.Activities {
		names[i] = a.Activity
	}
	return names
}

func TestStoreHydration(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	itineraryID := uuid.New()

	t.Run("hydrates from the repository on first access", func(t *testing.T) {
		store, repo := setupStoreTest(t)
		repo.On("GetItinerary", mock.Anything, itineraryID).
			Return(&types.Itinerary{ID: itineraryID, UserID: userID, Days: testDays()}, nil).Once()

		day, err := store.GetDay(ctx, userID, itineraryID, 1)
		require.NoError(t, err)
		assert.Equal(t, "Arrival", day.Title)

		// Second access hits the session, not the repository.
		_, err = store.GetDay(ctx, userID, itineraryID, 2)
		require.NoError(t, err)
		repo.AssertNumberOfCalls(t, "GetItinerary", 1)
	})

	t.Run("another user's itinerary looks missing", func(t *testing.T) {
		store, repo := setupStoreTest(t)
		repo.On("GetItinerary", mock.Anything, itineraryID).
			Return(&types.Itinerary{ID: itineraryID, UserID: uuid.New(), Days: testDays()}, nil).Once()

		_, err := store.GetDay(ctx, userID, itineraryID, 1)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("ungenerated itinerary cannot open a session", func(t *testing.T) {
		store, repo := setupStoreTest(t)
		repo.On("GetItinerary", mock.Anything, itineraryID).
			Return(&types.Itinerary{ID: itineraryID, UserID: userID}, nil).Once()

		_, err := store.GetDay(ctx, userID, itineraryID, 1)
		assert.ErrorIs(t, err, types.ErrNotGenerated)
	})

	t.Run("unknown day number", func(t *testing.T) {
		store, _ := setupStoreTest(t)
		store.Open(itineraryID, userID, testDays())

		_, err := store.GetDay(ctx, userID, itineraryID, 9)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestStoreReorderActivity(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	itineraryID := uuid.New()

	open := func(t *testing.T) (*Store, *MockRepository) {
		t.Helper()
		store, repo := setupStoreTest(t)
		store.Open(itineraryID, userID, testDays())
		repo.On("UpdateItineraryData", mock.Anything, itineraryID, mock.Anything).Return(nil).Maybe()
		return store, repo
	}

	t.Run("moves an activity forward", func(t *testing.T) {
		store, _ := open(t)
		day, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 0, To: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "A"}, activityNames(day))
	})

	t.Run("moves an activity backward", func(t *testing.T) {
		store, _ := open(t)
		day, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 2, To: 0})
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "A", "B"}, activityNames(day))
	})

	t.Run("no-op when from equals to", func(t *testing.T) {
		store, _ := open(t)
		day, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 1, To: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, activityNames(day))
	})

	t.Run("clamps an out-of-range destination", func(t *testing.T) {
		store, _ := open(t)
		day, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 0, To: 99})
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "A"}, activityNames(day))

		day, err = store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 2, To: -5})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, activityNames(day))
	})

	t.Run("rejects an out-of-range source", func(t *testing.T) {
		store, _ := open(t)
		_, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 3, To: 0})
		assert.ErrorIs(t, err, types.ErrBadRequest)

		_, err = store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: -1, To: 0})
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})

	t.Run("reordering preserves activity contents", func(t *testing.T) {
		store, _ := open(t)
		day, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 0, To: 2})
		require.NoError(t, err)
		moved := day.Activities[2]
		assert.Equal(t, "09:00", moved.Time)
		require.NotNil(t, moved.EstimatedCost)
		assert.Equal(t, 10.0, *moved.EstimatedCost)
	})
}

func TestStoreSubstituteActivity(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	itineraryID := uuid.New()

	t.Run("replaces only the core fields", func(t *testing.T) {
		store, repo := setupStoreTest(t)
		days := testDays()
		days[0].Activities[1].Tips = []string{"Go early"}
		store.Open(itineraryID, userID, days)
		repo.On("UpdateItineraryData", mock.Anything, itineraryID, mock.Anything).Return(nil).Maybe()

		cost := 25.0
		day, err := store.SubstituteActivity(ctx, userID, itineraryID, 1, types.SubstituteActivityRequest{
			ActivityIndex: 1,
			Alternative: types.Alternative{
				Activity:      "Snorkeling",
				Location:      "Crystal Cove",
				Description:   "Boat trip with gear included.",
				EstimatedCost: &cost,
			},
		})
		require.NoError(t, err)

		got := day.Activities[1]
		assert.Equal(t, "Snorkeling", got.Activity)
		assert.Equal(t, "Crystal Cove", got.Location)
		assert.Equal(t, "Boat trip with gear included.", got.Description)
		require.NotNil(t, got.EstimatedCost)
		assert.Equal(t, 25.0, *got.EstimatedCost)

		// Time slot and premium annotations survive the swap.
		assert.Equal(t, "12:00", got.Time)
		assert.Equal(t, []string{"Go early"}, got.Tips)
	})

	t.Run("a nil alternative cost clears the cost", func(t *testing.T) {
		store, repo := setupStoreTest(t)
		store.Open(itineraryID, userID, testDays())
		repo.On("UpdateItineraryData", mock.Anything, itineraryID, mock.Anything).Return(nil).Maybe()

		day, err := store.SubstituteActivity(ctx, userID, itineraryID, 1, types.SubstituteActivityRequest{
			ActivityIndex: 0,
			Alternative:   types.Alternative{Activity: "X", Location: "Y", Description: "Z"},
		})
		require.NoError(t, err)
		assert.Nil(t, day.Activities[0].EstimatedCost)
	})

	t.Run("rejects an out-of-range index", func(t *testing.T) {
		store, _ := setupStoreTest(t)
		store.Open(itineraryID, userID, testDays())

		_, err := store.SubstituteActivity(ctx, userID, itineraryID, 2, types.SubstituteActivityRequest{
			ActivityIndex: 5,
			Alternative:   types.Alternative{Activity: "X", Location: "Y", Description: "Z"},
		})
		assert.ErrorIs(t, err, types.ErrBadRequest)
	})
}

func TestStoreSaveStatus(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	itineraryID := uuid.New()

	t.Run("successful persist lands on saved", func(t *testing.T) {
		store, repo := setupStoreTest(t)
		store.Open(itineraryID, userID, testDays())
		repo.On("UpdateItineraryData", mock.Anything, itineraryID, mock.Anything).Return(nil)

		_, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 0, To: 1})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			status, err := store.SaveStatus(ctx, userID, itineraryID)
			return err == nil && status.State == types.SaveStateSaved
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("failed persist lands on failed and keeps the edit", func(t *testing.T) {
		store, repo := setupStoreTest(t)
		store.Open(itineraryID, userID, testDays())
		repo.On("UpdateItineraryData", mock.Anything, itineraryID, mock.Anything).
			Return(assert.AnError)

		day, err := store.ReorderActivity(ctx, userID, itineraryID, 1, types.ReorderActivityRequest{From: 0, To: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "A"}, activityNames(day))

		require.Eventually(t, func() bool {
			status, err := store.SaveStatus(ctx, userID, itineraryID)
			return err == nil && status.State == types.SaveStateFailed && status.LastError != ""
		}, time.Second, 10*time.Millisecond)

		// The in-memory edit is still there.
		got, err := store.GetDay(ctx, userID, itineraryID, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "C", "A"}, activityNames(got))
	})

	t.Run("freshly generated session starts saved", func(t *testing.T) {
		store, _ := setupStoreTest(t)
		store.Open(itineraryID, userID, testDays())

		status, err := store.SaveStatus(ctx, userID, itineraryID)
		require.NoError(t, err)
		assert.Equal(t, types.SaveStateSaved, status.State)
	})
}
