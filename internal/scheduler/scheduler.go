package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fennwald/triage-api/internal/batch"
	"github.com/fennwald/triage-api/internal/config"
	"github.com/fennwald/triage-api/internal/report"
	"github.com/fennwald/triage-api/internal/store"
)

// BatchRunner runs extraction batches. Satisfied by *batch.Orchestrator.
type BatchRunner interface {
	RunBatch(ctx context.Context, conversationID int64, windowStart, windowEnd time.Time) batch.Result
	RunRange(ctx context.Context, conversationID int64, since, until time.Time) batch.Result
}

// ReportBuilder assembles daily reports. Satisfied by *report.Aggregator.
type ReportBuilder interface {
	BuildDailyReport(ctx context.Context, conversationID int64, date time.Time) (*report.View, error)
}

// ReportDeliverer sends a rendered report, already split into chunks, to
// wherever the conversation's readers are.
type ReportDeliverer interface {
	DeliverReport(ctx context.Context, conversationID int64, chunks []string) error
}

// Scheduler owns the periodic work: a batch tick per configured interval
// that sweeps every registered conversation, and a daily report fire at the
// configured local time. On-demand triggers share the same orchestrator and
// therefore the same single-flight guard.
type Scheduler struct {
	cfg      config.SchedulerConfig
	location *time.Location
	runner   BatchRunner
	builder  ReportBuilder
	delivery ReportDeliverer
	messages store.MessageStore
	registry *Registry
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. The timezone in cfg must name a valid
// IANA location.
func NewScheduler(
	cfg config.SchedulerConfig,
	runner BatchRunner,
	builder ReportBuilder,
	delivery ReportDeliverer,
	messages store.MessageStore,
	registry *Registry,
	logger *slog.Logger,
) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("batch runner cannot be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("report builder cannot be nil")
	}
	if delivery == nil {
		return nil, fmt.Errorf("report deliverer cannot be nil")
	}
	if messages == nil {
		return nil, fmt.Errorf("message store cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.BatchInterval <= 0 {
		return nil, fmt.Errorf("batch interval must be positive, got %s", cfg.BatchInterval)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}
	if _, err := parseReportTime(cfg.ReportTime); err != nil {
		return nil, err
	}

	return &Scheduler{
		cfg:      cfg,
		location: loc,
		runner:   runner,
		builder:  builder,
		delivery: delivery,
		messages: messages,
		registry: registry,
		logger:   logger.With(slog.String("component", "scheduler")),
	}, nil
}

// Registry returns the conversation registry so ingestion can add
// conversations as their first messages arrive.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Start seeds the registry from the store and launches the batch and report
// loops. It returns once the loops are running.
func (s *Scheduler) Start(ctx context.Context) error {
	ids, err := s.messages.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("seeding conversation registry: %w", err)
	}
	for _, id := range ids {
		s.registry.Register(id)
	}
	s.logger.Info("scheduler starting",
		slog.Int("conversations", s.registry.Len()),
		slog.Duration("batch_interval", s.cfg.BatchInterval),
		slog.String("report_time", s.cfg.ReportTime),
		slog.String("timezone", s.cfg.Timezone))

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.batchLoop(loopCtx)
	go s.reportLoop(loopCtx)

	return nil
}

// Stop cancels the loops and waits for in-flight work to finish, up to the
// deadline on ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown timed out: %w", ctx.Err())
	}
}

// TriggerNow runs an immediate batch for one conversation over the trailing
// batch interval ending now. The result carries OutcomeAlreadyRunning if a
// scheduled run holds the conversation's guard.
func (s *Scheduler) TriggerNow(ctx context.Context, conversationID int64) batch.Result {
	now := time.Now().UTC()
	s.registry.Register(conversationID)
	return s.runner.RunBatch(ctx, conversationID, now.Add(-s.cfg.BatchInterval), now)
}

// TriggerRange runs an immediate batch covering the trailing number of
// days, sweeping up messages older scheduled windows may have missed.
func (s *Scheduler) TriggerRange(ctx context.Context, conversationID int64, days int) batch.Result {
	now := time.Now().UTC()
	if days < 1 {
		days = 1
	}
	s.registry.Register(conversationID)
	return s.runner.RunRange(ctx, conversationID, now.AddDate(0, 0, -days), now)
}

// batchLoop sweeps every registered conversation once per interval, each in
// its own goroutine so one slow extraction cannot delay the others.
func (s *Scheduler) batchLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			s.sweep(ctx, tick.UTC())
		}
	}
}

// sweep runs one batch per registered conversation over the window that
// just elapsed and waits for all of them before returning.
func (s *Scheduler) sweep(ctx context.Context, tick time.Time) {
	windowStart := tick.Add(-s.cfg.BatchInterval)

	var wg sync.WaitGroup
	for _, id := range s.registry.IDs() {
		wg.Add(1)
		go func(conversationID int64) {
			defer wg.Done()
			result := s.runner.RunBatch(ctx, conversationID, windowStart, tick)
			s.logResult("scheduled batch", result)
		}(id)
	}
	wg.Wait()
}

// reportLoop fires once per day at the configured local time and delivers
// the previous calendar day's report for every registered conversation.
func (s *Scheduler) reportLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.nextReportFire(time.Now().In(s.location))
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fire := <-timer.C:
			s.deliverReports(ctx, fire.In(s.location))
		}
	}
}

// deliverReports builds and sends the report for the calendar day before
// the fire time. Delivery failures are logged per conversation and never
// stop the sweep.
func (s *Scheduler) deliverReports(ctx context.Context, fire time.Time) {
	day := fire.AddDate(0, 0, -1)
	reportDate := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	for _, id := range s.registry.IDs() {
		view, err := s.builder.BuildDailyReport(ctx, id, reportDate)
		if err != nil {
			s.logger.Error("building daily report failed",
				slog.Int64("conversation_id", id),
				slog.String("error", err.Error()))
			continue
		}
		if view.Empty() {
			continue
		}

		chunks := report.Chunks(view.Render(), report.DefaultChunkLimit)
		if err := s.delivery.DeliverReport(ctx, id, chunks); err != nil {
			s.logger.Error("delivering daily report failed",
				slog.Int64("conversation_id", id),
				slog.String("error", err.Error()))
			continue
		}

		s.logger.Info("daily report delivered",
			slog.Int64("conversation_id", id),
			slog.Time("report_date", reportDate),
			slog.Int("chunks", len(chunks)))
	}
}

// nextReportFire returns the next occurrence of the configured report time
// strictly after now, in the scheduler's location.
func (s *Scheduler) nextReportFire(now time.Time) time.Time {
	hour, minute, _ := mustParseReportTime(s.cfg.ReportTime)
	fire := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.location)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

func (s *Scheduler) logResult(source string, result batch.Result) {
	attrs := []any{
		slog.Int64("conversation_id", result.ConversationID),
		slog.String("outcome", string(result.Outcome)),
		slog.Int("messages", result.MessageCount),
		slog.Int("tasks", result.TaskCount),
	}
	if result.Failed() {
		attrs = append(attrs, slog.String("error", result.Err.Error()))
		s.logger.Error(source+" failed", attrs...)
		return
	}
	s.logger.Info(source+" finished", attrs...)
}

// parseReportTime parses an "HH:MM" wall-clock time.
func parseReportTime(value string) (time.Time, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid report time %q, expected HH:MM: %w", value, err)
	}
	return t, nil
}

// mustParseReportTime assumes the value was validated in NewScheduler.
func mustParseReportTime(value string) (hour, minute, _ int) {
	t, err := parseReportTime(value)
	if err != nil {
		// ALLOW-PANIC: constructor validated the value.
		panic(err)
	}
	return t.Hour(), t.Minute(), 0
}
