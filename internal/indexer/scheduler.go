package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/logger"
)

const DefaultSchedule = "@every 1h"

// Scheduler runs IndexPending on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	indexer *Indexer
	spec    string
	batch   int
	logger  *zap.Logger
	initial sync.WaitGroup
}

// NewScheduler creates a Scheduler. Overlapping passes are skipped.
func NewScheduler(indexer *Indexer, spec string, batch int, log *zap.Logger) *Scheduler {
	if spec = strings.TrimSpace(spec); spec == "" {
		spec = DefaultSchedule
	}
	log = logger.WithFields(log, zap.String("component", "scheduler"), zap.String("schedule", spec))

	cl := cronLogger{log: log.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		indexer: indexer,
		spec:    spec,
		batch:   batch,
		logger:  log,
	}
}

// Start registers the job, starts the scheduler and runs one pass immediately. The first pass
// goes through the same job chain, so it is never overlapped by a scheduled one.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("index scheduler started", zap.Time("next", s.cron.Entry(id).Next))

	job := s.cron.Entry(id).WrappedJob
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()
	s.logger.Info("index scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.indexer.IndexPending(ctx, s.batch); err != nil {
		s.logger.Error("index pass failed", zap.Error(err))
	}
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
