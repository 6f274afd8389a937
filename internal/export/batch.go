package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/logger"
)

// Source loads what the batch renders.
type Source interface {
	Get(ctx context.Context, id int64) (*budget.Detail, error)
	Project(ctx context.Context, id int64) (*budget.ProjectSummary, error)
}

type Job struct {
	BudgetID int64
	Format   Format
	// Project selects the project summary instead of the budget document.
	Project bool
	Attempt  int
}

func (j Job) key() string {
	kind := "presupuesto"
	if j.Project {
		kind = "resumen"
	}
	return fmt.Sprintf("%d/%s/%s", j.BudgetID, kind, j.Format)
}

type Result struct {
	Job   Job
	Path  string
	Error error
}

// Batch writes documents for many budgets with a fixed number of workers.
// Failed jobs are queued again until the retry limit; jobs that already
// succeeded in an earlier run of the same Batch are not redone.
type Batch struct {
	source Source
	exp    *Exporter
	log    *logger.Logger
	outDir string

	// Settings
	maxConcurrency int
	retryLimit     int
	retryDelay     time.Duration

	mu   sync.RWMutex
	done map[string]string
}

func NewBatch(source Source, exp *Exporter, log *logger.Logger, outDir string, concurrency int) *Batch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{
		source:         source,
		exp:            exp,
		log:            log,
		outDir:         outDir,
		maxConcurrency: concurrency,
		retryLimit:     3,
		retryDelay:     500 * time.Millisecond,
		done:           make(map[string]string),
	}
}

func (b *Batch) ShouldProcess(j Job) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.done[j.key()]
	return !ok
}

// Run renders every job into a fresh directory under the output dir and
// returns one result per job, ordered by budget.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	const component = "Exporter"

	runDir := filepath.Join(b.outDir, uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	b.log.Info(component, "Starting batch export: jobs=%d concurrency=%d dir=%s", len(jobs), b.maxConcurrency, runDir)

	results := make([]Result, 0, len(jobs))
	jobChan := make(chan Job, len(jobs))
	resultChan := make(chan Result, len(jobs))

	pending := 0
	for _, j := range jobs {
		if !b.ShouldProcess(j) {
			b.mu.RLock()
			results = append(results, Result{Job: j, Path: b.done[j.key()]})
			b.mu.RUnlock()
			continue
		}
		jobChan <- j
		pending++
	}

	var wg sync.WaitGroup
	for i := 0; i < b.maxConcurrency; i++ {
		wg.Add(1)
		go b.worker(ctx, runDir, jobChan, resultChan, &wg)
	}

	for pending > 0 {
		res := <-resultChan
		if res.Error != nil && res.Job.Attempt < b.retryLimit && retryable(res.Error) {
			b.log.Warn(component, "Job failed, queuing for retry: job=%s attempt=%d err=%v", res.Job.key(), res.Job.Attempt, res.Error)
			res.Job.Attempt++
			jobChan <- res.Job
			continue
		}

		if res.Error != nil {
			b.log.Error(component, "Job failed: job=%s err=%v", res.Job.key(), res.Error)
		} else {
			b.mu.Lock()
			b.done[res.Job.key()] = res.Path
			b.mu.Unlock()
		}
		results = append(results, res)
		pending--
	}
	close(jobChan)
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Job.BudgetID < results[j].Job.BudgetID
	})
	return results, ctx.Err()
}

func retryable(err error) bool {
	return !budget.IsNotFound(err) &&
		!budget.IsValidation(err) &&
		!errors.Is(err, ErrUnsupportedFormat) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (b *Batch) worker(ctx context.Context, dir string, jobs <-chan Job, results chan<- Result, wg *sync.WaitGroup) {
	const component = "Worker"
	defer wg.Done()

	for job := range jobs {
		if job.Attempt > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.retryDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			results <- Result{Job: job, Error: err}
			continue
		}
		b.log.Debug(component, "Processing job: %s attempt=%d", job.key(), job.Attempt)
		path, err := b.process(ctx, dir, job)
		results <- Result{Job: job, Path: path, Error: err}
	}
}

func (b *Batch) process(ctx context.Context, dir string, job Job) (string, error) {
	var (
		client string
		render func(f *os.File) error
	)
	prefix := "Presupuesto"
	if job.Project {
		ps, err := b.source.Project(ctx, job.BudgetID)
		if err != nil {
			return "", err
		}
		prefix, client = "Resumen", ps.Budget.Client
		render = func(f *os.File) error { return b.exp.Project(f, job.Format, ps) }
	} else {
		d, err := b.source.Get(ctx, job.BudgetID)
		if err != nil {
			return "", err
		}
		client = d.Budget.Client
		render = func(f *os.File) error { return b.exp.Budget(f, job.Format, &d.Budget, d.Summary) }
	}

	path := filepath.Join(dir, fmt.Sprintf("%d-%s", job.BudgetID, Filename(prefix, client, job.Format)))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
