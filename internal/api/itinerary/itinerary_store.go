package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lakbayhq/lakbay-api/app/observability/metrics"
	"github.com/lakbayhq/lakbay-api/internal/types"
)

const (
	sessionTTL         = 24 * time.Hour
	sessionSweepEvery  = time.Hour
	persistSaveTimeout = 10 * time.Second
)

// session is one user's in-memory editing copy of an itinerary. All access
// goes through its mutex; the in-memory copy is authoritative and edits never
// fail on storage errors.
type session struct {
	mu     sync.Mutex
	userID uuid.UUID
	days   []types.ItineraryDay
	save   types.SaveStatus
}

// Store holds editing sessions for generated itineraries. Sessions hydrate
// lazily from the repository on first access and expire after a day of
// inactivity on write; persistence after each edit is best-effort and
// asynchronous, with the outcome surfaced through SaveStatus.
type Store struct {
	logger   *slog.Logger
	repo     Repository
	sessions *cache.Cache

	// hydrateMu serializes session creation so two concurrent first touches
	// do not both hydrate and clobber each other's edits.
	hydrateMu sync.Mutex
}

func NewStore(repo Repository, logger *slog.Logger) *Store {
	return &Store{
		logger:   logger,
		repo:     repo,
		sessions: cache.New(sessionTTL, sessionSweepEvery),
	}
}

// Open seeds a session with freshly generated days, replacing any existing
// session for the itinerary.
func (s *Store) Open(itineraryID, userID uuid.UUID, days []types.ItineraryDay) {
	s.sessions.Set(itineraryID.String(), &session{
		userID: userID,
		days:   cloneDays(days),
		save:   types.SaveStatus{State: types.SaveStateSaved, UpdatedAt: time.Now()},
	}, cache.DefaultExpiration)
}

// Close drops the session. Unsaved edits are discarded; the stored record is
// whatever the last successful persist wrote.
func (s *Store) Close(itineraryID uuid.UUID) {
	s.sessions.Delete(itineraryID.String())
}

// Days returns a copy of the session's current days, if a session is open.
func (s *Store) Days(itineraryID uuid.UUID) ([]types.ItineraryDay, bool) {
	v, found := s.sessions.Get(itineraryID.String())
	if !found {
		return nil, false
	}
	sess := v.(*session)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return cloneDays(sess.days), true
}

// GetDay returns a copy of one day by its day number.
func (s *Store) GetDay(ctx context.Context, userID, itineraryID uuid.UUID, dayNumber int) (*types.ItineraryDay, error) {
	sess, err := s.getSession(ctx, userID, itineraryID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	day := findDay(sess.days, dayNumber)
	if day == nil {
		return nil, fmt.Errorf("%w: day %d", types.ErrNotFound, dayNumber)
	}
	out := cloneDay(*day)
	return &out, nil
}

// ReorderActivity moves the activity at From to position To within one day.
// From must address an existing activity; To is clamped into range. The edit
// is applied in memory first and persisted asynchronously.
func (s *Store) ReorderActivity(ctx context.Context, userID, itineraryID uuid.UUID, dayNumber int, req types.ReorderActivityRequest) (*types.ItineraryDay, error) {
	sess, err := s.getSession(ctx, userID, itineraryID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	day := findDay(sess.days, dayNumber)
	if day == nil {
		return nil, fmt.Errorf("%w: day %d", types.ErrNotFound, dayNumber)
	}
	acts := day.Activities
	if req.From < 0 || req.From >= len(acts) {
		return nil, fmt.Errorf("%w: from index %d out of range [0,%d)", types.ErrBadRequest, req.From, len(acts))
	}
	to := req.To
	if to < 0 {
		to = 0
	}
	if to > len(acts)-1 {
		to = len(acts) - 1
	}

	moved := acts[req.From]
	acts = append(acts[:req.From], acts[req.From+1:]...)
	acts = append(acts[:to], append([]types.Activity{moved}, acts[to:]...)...)
	day.Activities = acts

	s.markPendingLocked(sess)
	s.persistAsync(itineraryID, sess)
	out := cloneDay(*day)
	return &out, nil
}

// SubstituteActivity replaces the activity, location, description and
// estimated cost of one activity with the chosen alternative. Time slot and
// premium annotations stay as they were, which keeps stale premium detail
// visible until the user regenerates.
func (s *Store) SubstituteActivity(ctx context.Context, userID, itineraryID uuid.UUID, dayNumber int, req types.SubstituteActivityRequest) (*types.ItineraryDay, error) {
	sess, err := s.getSession(ctx, userID, itineraryID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	day := findDay(sess.days, dayNumber)
	if day == nil {
		return nil, fmt.Errorf("%w: day %d", types.ErrNotFound, dayNumber)
	}
	if req.ActivityIndex < 0 || req.ActivityIndex >= len(day.Activities) {
		return nil, fmt.Errorf("%w: activity index %d out of range [0,%d)", types.ErrBadRequest, req.ActivityIndex, len(day.Activities))
	}

	target := &day.Activities[req.ActivityIndex]
	target.Activity = req.Alternative.Activity
	target.Location = req.Alternative.Location
	target.Description = req.Alternative.Description
	target.EstimatedCost = req.Alternative.EstimatedCost

	s.markPendingLocked(sess)
	s.persistAsync(itineraryID, sess)
	out := cloneDay(*day)
	return &out, nil
}

// SaveStatus reports the persistence state of the session's last edit.
func (s *Store) SaveStatus(ctx context.Context, userID, itineraryID uuid.UUID) (types.SaveStatus, error) {
	sess, err := s.getSession(ctx, userID, itineraryID)
	if err != nil {
		return types.SaveStatus{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.save, nil
}

// getSession returns the open session, hydrating one from storage on first
// access. Other users' itineraries look like missing ones.
func (s *Store) getSession(ctx context.Context, userID, itineraryID uuid.UUID) (*session, error) {
	key := itineraryID.String()
	if v, found := s.sessions.Get(key); found {
		sess := v.(*session)
		if sess.userID != userID {
			return nil, types.ErrNotFound
		}
		return sess, nil
	}

	s.hydrateMu.Lock()
	defer s.hydrateMu.Unlock()
	if v, found := s.sessions.Get(key); found {
		sess := v.(*session)
		if sess.userID != userID {
			return nil, types.ErrNotFound
		}
		return sess, nil
	}

	it, err := s.repo.GetItinerary(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if it.UserID != userID {
		return nil, types.ErrNotFound
	}
	if it.Days == nil {
		return nil, types.ErrNotGenerated
	}

	sess := &session{
		userID: userID,
		days:   cloneDays(it.Days),
		save:   types.SaveStatus{State: types.SaveStateIdle, UpdatedAt: time.Now()},
	}
	s.sessions.Set(key, sess, cache.DefaultExpiration)
	s.logger.DebugContext(ctx, "Hydrated editing session", slog.String("itineraryID", key))
	return sess, nil
}

func (s *Store) markPendingLocked(sess *session) {
	sess.save = types.SaveStatus{State: types.SaveStatePending, UpdatedAt: time.Now()}
}

// persistAsync writes the session's current days to storage without blocking
// the edit. Overlapping persists are last-writer-wins, which matches the
// whole-document overwrite in the repository.
func (s *Store) persistAsync(itineraryID uuid.UUID, sess *session) {
	snapshot := cloneDays(sess.days)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistSaveTimeout)
		defer cancel()

		err := s.repo.UpdateItineraryData(ctx, itineraryID, snapshot)

		sess.mu.Lock()
		defer sess.mu.Unlock()
		if err != nil {
			perr := &types.PersistenceError{ItineraryID: itineraryID.String(), Err: err}
			sess.save = types.SaveStatus{State: types.SaveStateFailed, LastError: perr.Error(), UpdatedAt: time.Now()}
			metrics.Get().PersistenceFailuresTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("operation", "edit"),
			))
			s.logger.Error("Best-effort save failed", slog.Any("error", perr))
			return
		}
		sess.save = types.SaveStatus{State: types.SaveStateSaved, UpdatedAt: time.Now()}
	}()
}

func findDay(days []types.ItineraryDay, dayNumber int) *types.ItineraryDay {
	for i := range days {
		if days[i].Day == dayNumber {
			return &days[i]
		}
	}
	return nil
}

func cloneDay(day types.ItineraryDay) types.ItineraryDay {
	out := day
	out.Activities = make([]types.Activity, len(day.Activities))
	copy(out.Activities, day.Activities)
	return out
}

func cloneDays(days []types.ItineraryDay) []types.ItineraryDay {
	out := make([]types.ItineraryDay, len(days))
	for i, d := range days {
		out[i] = cloneDay(d)
	}
	return out
}
