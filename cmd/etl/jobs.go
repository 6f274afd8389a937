package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/farxc/presupuestos-estudio/internal/budget"
	"github.com/farxc/presupuestos-estudio/internal/export"
	"github.com/farxc/presupuestos-estudio/internal/logger"
	"github.com/farxc/presupuestos-estudio/internal/store"
)

type importJob struct {
	budgetID    int64
	path        string
	windows1252 bool
	delimiter   string
}

func runImport(ctx context.Context, im *export.Importer, job importJob, appLogger *logger.Logger) error {
	const component = "Loader"

	if job.budgetID <= 0 || job.path == "" {
		return errors.New("import needs -budget and -file")
	}
	opts := export.ImportOptions{Windows1252: job.windows1252}
	if d := []rune(job.delimiter); len(d) == 1 {
		opts.Delimiter = d[0]
	} else if len(d) > 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", job.delimiter)
	}

	f, err := os.Open(job.path)
	if err != nil {
		return err
	}
	defer f.Close()

	appLogger.Info(component, "Importing items: budget=%d file=%s", job.budgetID, job.path)
	res, err := im.Import(ctx, job.budgetID, f, opts)
	if err != nil {
		return err
	}
	for _, re := range res.Rejected {
		appLogger.Warn(component, "Row skipped: file=%s %v", job.path, re)
	}
	if res.Summary != nil {
		appLogger.Info(component, "Budget %d now totals %s (price %s)", job.budgetID, res.Summary.Total.StringFixed(2), res.Summary.Price.StringFixed(2))
	}
	return nil
}

type exportJob struct {
	ids     string
	status  string
	formats string
	project bool
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid budget id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseFormats(raw string) ([]export.Format, error) {
	var out []export.Format
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.New("no export format given")
	}
	return out, nil
}

// buildJobs crosses budgets and formats. Without explicit ids every budget
// in status is exported.
func buildJobs(ctx context.Context, storage *store.Storage, job exportJob) ([]export.Job, error) {
	ids, err := parseIDs(job.ids)
	if err != nil {
		return nil, err
	}
	formats, err := parseFormats(job.formats)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		if job.status == "" {
			return nil, errors.New("export needs -ids or -status")
		}
		status, err := budget.ParseStatus(job.status)
		if err != nil {
			return nil, err
		}
		budgets, err := storage.Budgets.List(ctx, store.BudgetFilter{Status: status})
		if err != nil {
			return nil, err
		}
		for _, b := range budgets {
			ids = append(ids, b.ID)
		}
	}

	jobs := make([]export.Job, 0, len(ids)*len(formats))
	for _, id := range ids {
		for _, f := range formats {
			jobs = append(jobs, export.Job{BudgetID: id, Format: f, Project: job.project})
		}
	}
	return jobs, nil
}

func runExport(ctx context.Context, batch *export.Batch, storage *store.Storage, job exportJob, appLogger *logger.Logger) error {
	const component = "Exporter"

	jobs, err := buildJobs(ctx, storage, job)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		appLogger.Warn(component, "Nothing to export")
		return nil
	}

	results, err := batch.Run(ctx, jobs)
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			appLogger.Error(component, "Export failed: budget=%d format=%s error=%v", r.Job.BudgetID, r.Job.Format, r.Error)
			continue
		}
		appLogger.Info(component, "Exported: budget=%d path=%s", r.Job.BudgetID, r.Path)
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	return nil
}
