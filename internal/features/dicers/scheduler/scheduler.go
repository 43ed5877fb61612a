package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"dicers-bot/internal/common/logger"
	"dicers-bot/internal/features/dicers/service"
)

const (
	JobEarlyReset  = "early_reset"
	JobOpenAttend  = "open_attend"
	JobOpenDice    = "open_dice"
	JobWeeklyReset = "weekly_reset"

	jobTimeout = 5 * time.Minute
)

// Sweeper runs room-wide operations.
type Sweeper interface {
	ResetAll(ctx context.Context) service.BatchResult
	OpenAttendAll(ctx context.Context) service.BatchResult
	OpenDiceAll(ctx context.Context) service.BatchResult
	Persist(ctx context.Context) error
}

// Times are wall clock times ("15:04") in the scheduler's location.
type Times struct {
	EarlyReset  string
	OpenAttend  string
	OpenDice    string
	WeeklyReset string
}

type job struct {
	name    string
	weekday time.Weekday
	at      string
	run     func(ctx context.Context) service.BatchResult
}

// Scheduler drives the weekly event cycle: polls open Monday afternoon, dice
// in the evening, and rooms reset around them.
type Scheduler struct {
	cron    *gocron.Scheduler
	sweeper Sweeper
	jobs    []job
	log     zerolog.Logger
}

func New(loc *time.Location, times Times, sweeper Sweeper) (*Scheduler, error) {
	s := &Scheduler{
		cron:    gocron.NewScheduler(loc),
		sweeper: sweeper,
		log:     logger.Component("scheduler"),
	}
	s.cron.TagsUnique()
	s.jobs = []job{
		{JobEarlyReset, time.Monday, times.EarlyReset, sweeper.ResetAll},
		{JobOpenAttend, time.Monday, times.OpenAttend, sweeper.OpenAttendAll},
		{JobOpenDice, time.Monday, times.OpenDice, sweeper.OpenDiceAll},
		{JobWeeklyReset, time.Tuesday, times.WeeklyReset, sweeper.ResetAll},
	}

	for _, j := range s.jobs {
		j := j
		_, err := s.cron.Every(1).Week().Weekday(j.weekday).At(j.at).Tag(j.name).Do(func() {
			s.runJob(j)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %s at %q: %w", j.name, j.at, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.StartAsync()
	for _, j := range s.cron.Jobs() {
		s.log.Info().Strs("tags", j.Tags()).Time("next_run", j.NextRun()).Msg("Scheduled job")
	}
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Tags lists the registered jobs.
func (s *Scheduler) Tags() []string {
	var tags []string
	for _, j := range s.cron.Jobs() {
		tags = append(tags, j.Tags()...)
	}
	return tags
}

// Run executes the named job immediately.
func (s *Scheduler) Run(name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			s.runJob(j)
			return nil
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) runJob(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	res := j.run(ctx)
	if err := s.sweeper.Persist(ctx); err != nil {
		s.log.Error().Err(err).Str("job", j.name).Msg("Failed to persist after job")
	}
	s.log.Info().
		Str("job", j.name).
		Int("rooms", res.Total).
		Int("failed", len(res.Failed)).
		Dur("took", time.Since(start)).
		Msg("Job finished")
}
