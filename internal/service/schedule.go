// Package service contains the business logic of the schedule collector.
// Services orchestrate the upstream client and the report sinks; they depend
// on small consumer-side interfaces, never on concrete HTTP or DB types.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/fln-schedule/internal/domain"
)

// TripFetcher performs one upstream lookup. Implementations must not fail:
// a failed lookup returns an empty slice. *upstream.Client satisfies it.
type TripFetcher interface {
	Fetch(ctx context.Context, task domain.FetchTask) []domain.TripRecord
}

// Sink persists a finished table. path is the report file the run chose;
// database sinks record it alongside the rows.
type Sink interface {
	Write(ctx context.Context, table domain.ScheduleTable, path string) error
}

// ScheduleOptions are the per-run parameters of a ScheduleService.
type ScheduleOptions struct {
	// Directions are queried in order; defaults to domain.DefaultDirections.
	Directions []domain.Direction

	// Days is the length of the date window starting today. Defaults to 90.
	Days int

	// DateLayout is the Go layout used for the output file name prefix.
	DateLayout string

	// Folder and File form the report path "<Folder>/<date>_<File>".
	Folder string
	File   string

	Logger *slog.Logger

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// DefaultDays is the window length used when ScheduleOptions.Days is zero.
const DefaultDays = 90

// ScheduleService fans out one fetch per (date, direction), merges the
// results into a sorted table, and hands it to the sink.
type ScheduleService struct {
	fetcher TripFetcher
	sink    Sink
	opts    ScheduleOptions
	log     *slog.Logger

	runMu sync.Mutex

	mu     sync.RWMutex
	latest *domain.RunResult
}

// NewScheduleService constructs a ScheduleService. Zero-valued options fall
// back to their documented defaults.
func NewScheduleService(fetcher TripFetcher, sink Sink, opts ScheduleOptions) *ScheduleService {
	if len(opts.Directions) == 0 {
		opts.Directions = domain.DefaultDirections()
	}
	if opts.Days == 0 {
		opts.Days = DefaultDays
	}
	if opts.DateLayout == "" {
		opts.DateLayout = time.DateOnly
	}
	if opts.Folder == "" {
		opts.Folder = "output"
	}
	if opts.File == "" {
		opts.File = "FLN_schedule.xlsx"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ScheduleService{fetcher: fetcher, sink: sink, opts: opts, log: log}
}

// BuildTasks returns one task per (day, direction) for days consecutive
// calendar days starting at start's day, day 0 included. Tasks are ordered
// date-major, then in the given direction order. days < 1 yields no tasks.
func BuildTasks(start time.Time, days int, dirs []domain.Direction) []domain.FetchTask {
	if days < 1 || len(dirs) == 0 {
		return []domain.FetchTask{}
	}
	tasks := make([]domain.FetchTask, 0, days*len(dirs))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		for _, dir := range dirs {
			tasks = append(tasks, domain.NewFetchTask(dir, day))
		}
	}
	return tasks
}

// Collect runs every task concurrently and waits for all of them. It never
// stops early: a failing task only loses its own records. The returned error
// reports a failure of the gathering itself (a panicking task); the records
// gathered by the other tasks are returned with it.
func (s *ScheduleService) Collect(ctx context.Context, tasks []domain.FetchTask) ([]domain.TripRecord, error) {
	results := make([][]domain.TripRecord, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("task %s panicked: %v", task, r)
				}
			}()
			results[i] = s.fetcher.Fetch(ctx, task)
			return nil
		})
	}
	err := g.Wait()

	var n int
	for _, r := range results {
		n += len(r)
	}
	records := make([]domain.TripRecord, 0, n)
	for _, r := range results {
		records = append(records, r...)
	}

	if err != nil {
		return records, fmt.Errorf("service.ScheduleService.Collect: %w", err)
	}
	return records, nil
}

// Run performs one full collection: build tasks, gather, normalize, deliver.
// It only returns an error when the sink fails; the result carries the
// computed table in every case. Runs are serialized.
func (s *ScheduleService) Run(ctx context.Context) (domain.RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	started := s.opts.Now()
	res := domain.RunResult{
		RunID:     uuid.New(),
		StartedAt: started,
		State:     domain.RunInitialized,
	}
	log := s.log.With("run_id", res.RunID.String())
	log.InfoContext(ctx, "session created", "started_at", started.Format(time.RFC3339))

	tasks := BuildTasks(started, s.opts.Days, s.opts.Directions)
	res.Tasks = len(tasks)
	s.transition(ctx, log, &res, domain.RunTasksDispatched, "tasks", len(tasks))

	records, err := s.Collect(ctx, tasks)
	if err != nil {
		log.ErrorContext(ctx, "error during task gathering", "error", err)
	}
	s.transition(ctx, log, &res, domain.RunAllSettled, "records", len(records))

	res.Table = domain.NewScheduleTable(records)
	s.transition(ctx, log, &res, domain.RunNormalized, "rows", res.Table.Len())

	var runErr error
	if res.Table.Empty() {
		log.WarnContext(ctx, "no trip data retrieved")
		s.transition(ctx, log, &res, domain.RunDelivered)
	} else {
		path := s.outputPath(started)
		// Cancellation stops the gather only; what was gathered is still delivered.
		if err := s.sink.Write(context.WithoutCancel(ctx), res.Table, path); err != nil {
			log.ErrorContext(ctx, "error writing schedule report", "path", path, "error", err)
			s.transition(ctx, log, &res, domain.RunDeliveryFailed)
			runErr = fmt.Errorf("service.ScheduleService.Run: %w: %w", domain.ErrDelivery, err)
		} else {
			res.OutputPath = path
			log.InfoContext(ctx, "schedule written", "path", path, "rows", res.Table.Len())
			s.transition(ctx, log, &res, domain.RunDelivered)
		}
	}

	res.Duration = s.opts.Now().Sub(started)
	log.InfoContext(ctx, "run finished",
		"state", string(res.State),
		"elapsed_seconds", res.Duration.Seconds(),
	)

	s.mu.Lock()
	s.latest = &res
	s.mu.Unlock()

	return res, runErr
}

// Latest returns the most recently finished run, if any.
func (s *ScheduleService) Latest() (domain.RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.RunResult{}, false
	}
	return *s.latest, true
}

func (s *ScheduleService) outputPath(runDate time.Time) string {
	return filepath.Join(s.opts.Folder, runDate.Format(s.opts.DateLayout)+"_"+s.opts.File)
}

func (s *ScheduleService) transition(ctx context.Context, log *slog.Logger, res *domain.RunResult, to domain.RunState, args ...any) {
	log.DebugContext(ctx, "run state", append([]any{"from", string(res.State), "to", string(to)}, args...)...)
	res.State = to
}
