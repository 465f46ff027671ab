// Package store implements the pledge store: the single path through
// which the PledgeSet changes. It owns invariant enforcement (merge by
// person and room, fund ceiling) and the optimistic-concurrency loop
// over the kv backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"housefund/internal/core"
	"housefund/internal/kv"
)

// DefaultKey is the kv key the aggregate lives under.
const DefaultKey = "housefund-pledges"

var (
	// ErrConflict reports that a submission lost the write race after
	// exhausting retries; the caller may resubmit.
	ErrConflict = errors.New("store: write conflict, retries exhausted")
	// ErrCorrupt reports an undecodable stored payload.
	ErrCorrupt = errors.New("store: stored pledge data is corrupt")
)

// StartDateMode controls how StartDate is initialized on first access.
type StartDateMode string

const (
	// StartNow opens the pledge window at first access.
	StartNow StartDateMode = "now"
	// StartWindowAgo backdates the window by one window length, which
	// is what the deployed iterations of this fund did.
	StartWindowAgo StartDateMode = "window-ago"
)

// EventPublisher receives a notification after each successful write.
// Publishing is best effort; failures never fail the submission.
type EventPublisher interface {
	PublishPledgeSaved(ctx context.Context, pledge core.Pledge, total core.Money) error
}

// Options tune a Store. Zero values fall back to sane defaults.
type Options struct {
	Key            string
	Target         core.Money
	Window         time.Duration
	StartDateMode  StartDateMode
	StorageTimeout time.Duration
	MaxRetries     int
	// ReadFallback degrades Load to a marked empty set on storage
	// faults instead of failing the caller.
	ReadFallback bool

	Events EventPublisher
	Logger *slog.Logger

	// test seams
	Now   func() time.Time
	NewID func() string
}

type Store struct {
	kv   kv.Store
	opts Options
	log  *slog.Logger
}

func New(backend kv.Store, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Window <= 0 {
		opts.Window = 14 * 24 * time.Hour
	}
	if opts.StartDateMode == "" {
		opts.StartDateMode = StartWindowAgo
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: backend, opts: opts, log: logger}
}

// Submit validates and applies one pledge, returning the updated set.
//
// The read-modify-write runs as a compare-and-swap loop: the set is
// re-read and the remaining budget re-checked on every attempt, so two
// racing submissions can never push the fund past its target.
func (s *Store) Submit(ctx context.Context, name string, amount core.Money, room core.Room, email string) (*core.PledgeSet, error) {
	sub := core.Submission{Name: name, Amount: amount, Room: room, Email: email}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.opts.MaxRetries; attempt++ {
		set, version, err := s.read(ctx)
		if err != nil {
			// Never degrade on the write path; the caller must learn
			// the write did not happen.
			return nil, err
		}

		remaining := set.Remaining(s.opts.Target)
		if amount.Cents > remaining.Cents {
			return nil, &core.CapExceededError{Remaining: remaining}
		}

		now := s.opts.Now()
		normalized := core.NormalizeName(name)
		if i := set.Find(normalized, room); i >= 0 {
			set.Pledges[i].Amount.Cents += amount.Cents
			set.Pledges[i].Email = email
			set.Pledges[i].Timestamp = now
		} else {
			set.Pledges = append(set.Pledges, core.Pledge{
				ID:        s.opts.NewID(),
				Name:      normalized,
				Amount:    amount,
				Room:      room,
				Email:     email,
				Timestamp: now,
			})
		}
		set.LastUpdated = now

		err = s.write(ctx, set, version)
		if errors.Is(err, kv.ErrVersionMismatch) {
			s.log.WarnContext(ctx, "Pledge write lost a race, retrying",
				"attempt", attempt+1, "name", normalized, "room", string(room))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.log.InfoContext(ctx, "Pledge saved",
			"name", normalized,
			"room", string(room),
			"amount_cents", amount.Cents,
			"total_cents", set.Total().Cents)
		s.publish(ctx, set, normalized, room)
		return set, nil
	}

	return nil, ErrConflict
}

// Load returns the current pledge set, initializing and persisting an
// empty one on first access.
func (s *Store) Load(ctx context.Context) (*core.PledgeSet, error) {
	set, _, err := s.read(ctx)
	if err == nil {
		return set, nil
	}
	if errors.Is(err, ErrCorrupt) || s.opts.ReadFallback {
		s.log.ErrorContext(ctx, "Pledge read degraded to fallback set", "error", err)
		fb := s.emptySet()
		fb.Fallback = true
		return fb, nil
	}
	return nil, err
}

// Reset deletes all persisted pledge state. Deleting a missing set is
// not an error.
func (s *Store) Reset(ctx context.Context) error {
	cctx, cancel := s.storageCtx(ctx)
	defer cancel()
	if err := s.kv.Delete(cctx, s.opts.Key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("delete pledge set: %w", err)
	}
	s.log.InfoContext(ctx, "Pledge set reset")
	return nil
}

// PingBackend reports whether the persistence backend is reachable.
func (s *Store) PingBackend(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// read fetches and decodes the set along with its version token,
// initializing storage on first access.
func (s *Store) read(ctx context.Context) (*core.PledgeSet, int64, error) {
	cctx, cancel := s.storageCtx(ctx)
	defer cancel()

	rec, err := s.kv.Get(cctx, s.opts.Key)
	if errors.Is(err, kv.ErrNotFound) {
		return s.initialize(ctx)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load pledge set: %w", err)
	}

	var set core.PledgeSet
	if err := json.Unmarshal(rec.Value, &set); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &set, rec.Version, nil
}

// initialize persists a fresh empty set. If another writer initializes
// concurrently, theirs wins and we re-read.
func (s *Store) initialize(ctx context.Context) (*core.PledgeSet, int64, error) {
	set := s.emptySet()
	err := s.write(ctx, set, 0)
	if errors.Is(err, kv.ErrVersionMismatch) {
		cctx, cancel := s.storageCtx(ctx)
		defer cancel()
		rec, err := s.kv.Get(cctx, s.opts.Key)
		if err != nil {
			return nil, 0, fmt.Errorf("load pledge set after init race: %w", err)
		}
		var existing core.PledgeSet
		if err := json.Unmarshal(rec.Value, &existing); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return &existing, rec.Version, nil
	}
	if err != nil {
		return nil, 0, err
	}
	s.log.InfoContext(ctx, "Initialized empty pledge set", "start_date", set.StartDate)
	return set, 1, nil
}

func (s *Store) write(ctx context.Context, set *core.PledgeSet, version int64) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode pledge set: %w", err)
	}
	cctx, cancel := s.storageCtx(ctx)
	defer cancel()
	if err := s.kv.Put(cctx, s.opts.Key, data, version); err != nil {
		if errors.Is(err, kv.ErrVersionMismatch) {
			return err
		}
		return fmt.Errorf("persist pledge set: %w", err)
	}
	return nil
}

func (s *Store) emptySet() *core.PledgeSet {
	now := s.opts.Now()
	start := now
	if s.opts.StartDateMode == StartWindowAgo {
		start = now.Add(-s.opts.Window)
	}
	return &core.PledgeSet{
		Pledges:     []core.Pledge{},
		StartDate:   start,
		LastUpdated: now,
	}
}

func (s *Store) publish(ctx context.Context, set *core.PledgeSet, name string, room core.Room) {
	if s.opts.Events == nil {
		return
	}
	i := set.Find(name, room)
	if i < 0 {
		return
	}
	if err := s.opts.Events.PublishPledgeSaved(ctx, set.Pledges[i], set.Total()); err != nil {
		s.log.ErrorContext(ctx, "Failed to publish pledge event",
			"error", err, "name", name, "room", string(room))
	}
}

func (s *Store) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.StorageTimeout)
}
