// Package schedule submits jobs to a pool on cron schedules.
//
// The scheduler only produces work: each tick calls Submit on the target and
// returns, so a slow job occupies a pool worker and never the cron loop.
// Ticks that fire after the pool began shutting down are logged and counted,
// not retried.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	jperrors "github.com/vnykmshr/jobpool/pkg/common/errors"
	"github.com/vnykmshr/jobpool/pkg/common/validation"
	"github.com/vnykmshr/jobpool/pkg/jobpool"
	"github.com/vnykmshr/jobpool/pkg/metrics"
)

const module = "schedule"

// Entry describes a registered schedule.
type Entry struct {
	ID   cron.EntryID
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithName sets the scheduler name used in logs and metrics.
func WithName(name string) Option {
	return func(s *Scheduler) { s.name = name }
}

// WithLogger sets the logger for tick and rejection events.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithLocation sets the time zone cron specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// WithMetrics records ticks and rejected submissions.
func WithMetrics(config metrics.Config) Option {
	return func(s *Scheduler) { s.registry = config.Resolve() }
}

type entryInfo struct {
	name string
	spec string
}

// Scheduler feeds a Submitter from cron schedules.
type Scheduler struct {
	sub      jobpool.Submitter
	name     string
	log      zerolog.Logger
	location *time.Location
	registry *metrics.Registry
	parser   cron.Parser
	cron     *cron.Cron

	mu      sync.Mutex
	entries map[cron.EntryID]entryInfo
}

// New creates a scheduler that submits to sub. Specs accept an optional
// leading seconds field and the @hourly style descriptors.
func New(sub jobpool.Submitter, opts ...Option) (*Scheduler, error) {
	if sub == nil {
		return nil, jperrors.NewValidationError(module, "submitter", nil, "cannot be nil")
	}

	s := &Scheduler{
		sub:      sub,
		name:     "default",
		log:      zerolog.Nop(),
		location: time.Local,
		entries:  make(map[cron.EntryID]entryInfo),
		parser: cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("scheduler", s.name).Logger()

	logger := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)

	return s, nil
}

// Add registers job under name to be submitted on every tick of spec.
func (s *Scheduler) Add(name, spec string, job jobpool.Job) (cron.EntryID, error) {
	if err := validation.ValidateNotEmpty(module, "spec", spec); err != nil {
		return 0, err
	}

	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return 0, jperrors.NewValidationError(module, "spec", spec, err.Error()).
			WithHint("use five or six cron fields or a descriptor such as @every 1m")
	}

	return s.add(name, spec, schedule, job)
}

// AddSchedule registers job with an already built cron.Schedule.
func (s *Scheduler) AddSchedule(name string, schedule cron.Schedule, job jobpool.Job) (cron.EntryID, error) {
	if schedule == nil {
		return 0, jperrors.NewValidationError(module, "schedule", nil, "cannot be nil")
	}
	return s.add(name, fmt.Sprintf("%T", schedule), schedule, job)
}

func (s *Scheduler) add(name, spec string, schedule cron.Schedule, job jobpool.Job) (cron.EntryID, error) {
	if err := validation.ValidateNotEmpty(module, "name", name); err != nil {
		return 0, err
	}
	if job == nil {
		return 0, jperrors.NewValidationError(module, "job", nil, "cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(name, job) }))
	s.entries[id] = entryInfo{name: name, spec: spec}
	s.updateEntries()

	s.log.Info().Str("entry", name).Str("spec", spec).Int("id", int(id)).Msg("schedule entry added")

	return id, nil
}

// Remove unregisters an entry. Ticks already submitted are unaffected.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Remove(id)
	delete(s.entries, id)
	s.updateEntries()
}

// Entries lists registered entries ordered by id.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for id, info := range s.entries {
		e := s.cron.Entry(id)
		out = append(out, Entry{
			ID:   id,
			Name: info.name,
			Spec: info.spec,
			Next: e.Next,
			Prev: e.Prev,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Start begins ticking in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts ticking and waits for in-progress submissions, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("waiting for running ticks: %w: %w", jperrors.ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	}
}

func (s *Scheduler) fire(name string, job jobpool.Job) {
	if err := s.sub.Submit(job); err != nil {
		if s.registry != nil {
			s.registry.ScheduleSubmitFailures.WithLabelValues(name).Inc()
		}
		opErr := jperrors.NewOperationError(module, "Submit", err).WithContext("entry " + name)
		s.log.Warn().Err(opErr).Str("entry", name).Msg("scheduled job rejected")
		return
	}

	if s.registry != nil {
		s.registry.ScheduleRuns.WithLabelValues(name).Inc()
	}
	s.log.Debug().Str("entry", name).Msg("scheduled job submitted")
}

func (s *Scheduler) updateEntries() {
	if s.registry != nil {
		s.registry.ScheduleEntries.WithLabelValues(s.name).Set(float64(len(s.entries)))
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
