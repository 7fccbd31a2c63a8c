package refresher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service renews stored credentials before they expire. It sweeps the
// store on a fixed interval, refreshing every credential whose token
// expires within the lookahead window, and persists its next fire time so
// a restart resumes the cadence.
type Service struct {
	config Config
	db     *gorm.DB
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	// memNext paces the loop when schedule state cannot be read from the
	// database. Only the loop goroutine touches it.
	memNext time.Time
}

// New creates a refresher and migrates the schedule state table.
func New(cfg Config, db *gorm.DB, store Store, logger *slog.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm.DB is required")
	}
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := db.AutoMigrate(&ScheduleState{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schedule state table: %w", err)
	}

	registerMetrics()

	return &Service{
		config: cfg.withDefaults(),
		db:     db,
		store:  store,
		logger: logger,
	}, nil
}

// Start launches the sweep loop. It returns immediately; Stop shuts the
// loop down. Starting a running service is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
}

// Stop shuts the sweep loop down and waits for an in-flight sweep to
// finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Service) loop(stop, done chan struct{}) {
	defer close(done)

	for {
		wait := time.Until(s.nextRun())
		if wait > 0 {
			select {
			case <-stop:
				return
			case <-time.After(wait):
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}

		s.runProtected()
		s.scheduleNext(time.Now().Add(s.config.Interval))
	}
}

// runProtected runs one sweep and contains its panics. A panicking sweep
// is logged and counted; the loop keeps its cadence.
func (s *Service) runProtected() {
	defer func() {
		runsTotal.Inc()
		if r := recover(); r != nil {
			s.logger.Error("refresh sweep panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Interval)
	defer cancel()

	if err := s.RunNow(ctx); err != nil {
		s.logger.Error("refresh sweep failed", "error", err)
	}
}

// RunNow performs one sweep immediately: every credential expiring within
// the lookahead window gets one refresh attempt. Individual failures are
// logged and skipped so one broken credential cannot block the rest.
func (s *Service) RunNow(ctx context.Context) error {
	infos, err := s.store.ExpiringWithin(ctx, s.config.Lookahead)
	if err != nil {
		return fmt.Errorf("failed to query expiring credentials: %w", err)
	}
	if len(infos) == 0 {
		return nil
	}

	s.logger.Info("refreshing expiring credentials", "count", len(infos))
	for _, info := range infos {
		if _, err := s.store.Refresh(ctx, info.CharacterID); err != nil {
			refreshesTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("credential refresh failed",
				"character_id", info.CharacterID,
				"character_name", info.CharacterName,
				"error", err)
			continue
		}
		refreshesTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

// nextRun returns the persisted next fire time, or now when no state
// exists yet. When the state cannot be read at all, the in-memory fire
// time keeps the cadence so an unavailable database never turns the loop
// into a hot spin.
func (s *Service) nextRun() time.Time {
	var state ScheduleState
	err := s.db.First(&state, "name = ?", s.config.Name).Error
	if err == nil {
		return state.NextRun
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) && !s.memNext.IsZero() {
		return s.memNext
	}
	return time.Now()
}

func (s *Service) scheduleNext(next time.Time) {
	s.memNext = next

	state := ScheduleState{Name: s.config.Name, NextRun: next}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"next_run", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		s.logger.Warn("failed to persist schedule state", "error", err)
	}
}
