// Package journal persists a per-row record of each enrichment run to SQLite
// so failed lookups can be inspected and re-run.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/homology"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID            string `gorm:"primaryKey;size:36"`
	InputPath     string
	OutputPath    string
	SourceSpecies string
	TargetSpecies string
	Relation      string
	Sequence      string
	Status        RunStatus `gorm:"index;size:16"`
	Error         string
	Rows          int
	OK            int
	Failed        int
	Skipped       int
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// Entry is the outcome of one input row.
type Entry struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index;size:36"`
	RowIndex    int
	GeneID      string
	Status      string `gorm:"size:16"`
	FailureKind string `gorm:"size:16"`
	Message     string
	StatusCode  int
	Count       int
	Homologs    string
	DurationMS  int64
	CreatedAt   time.Time
}

// Journal implements run bookkeeping using GORM.
type Journal struct {
	db *gorm.DB
}

// New wraps an open database.
func New(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

// Open opens (or creates) the SQLite journal at path and migrates it.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	j := New(db)
	if err := j.Migrate(ctx); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("migrate journal %s: %w", path, err)
	}
	return j, nil
}

// Migrate creates the necessary tables.
func (j *Journal) Migrate(ctx context.Context) error {
	return j.db.WithContext(ctx).AutoMigrate(&Run{}, &Entry{})
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartRun inserts run in the running state.
func (j *Journal) StartRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	run.Status = RunRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return j.db.WithContext(ctx).Create(run).Error
}

// Record stores the outcome of one row.
func (j *Journal) Record(ctx context.Context, runID string, p homology.Progress) error {
	e := Entry{
		RunID:      runID,
		RowIndex:   p.Index,
		GeneID:     p.GeneID,
		Status:     string(p.Status),
		Count:      p.Result.Count,
		Homologs:   p.Result.Joined(),
		DurationMS: p.Duration.Milliseconds(),
	}
	if p.Failure != nil {
		e.FailureKind = string(p.Failure.Kind)
		e.Message = p.Failure.Message
		e.StatusCode = p.Failure.StatusCode
	}
	return j.db.WithContext(ctx).Create(&e).Error
}

// FinishRun closes the run, filling the per-status tallies from its entries.
// A non-nil runErr marks the run failed.
func (j *Journal) FinishRun(ctx context.Context, runID string, runErr error) error {
	type tally struct {
		Status string
		N      int
	}
	var tallies []tally
	err := j.db.WithContext(ctx).
		Model(&Entry{}).
		Select("status, COUNT(*) AS n").
		Where("run_id = ?", runID).
		Group("status").
		Scan(&tallies).Error
	if err != nil {
		return err
	}

	updates := map[string]any{
		"status":      RunCompleted,
		"error":       "",
		"finished_at": time.Now(),
		"ok":          0,
		"failed":      0,
		"skipped":     0,
	}
	rows := 0
	for _, t := range tallies {
		rows += t.N
		switch homology.Status(t.Status) {
		case homology.StatusOK:
			updates["ok"] = t.N
		case homology.StatusFailed:
			updates["failed"] = t.N
		case homology.StatusSkipped:
			updates["skipped"] = t.N
		}
	}
	updates["rows"] = rows
	if runErr != nil {
		updates["status"] = RunFailed
		updates["error"] = runErr.Error()
	}

	res := j.db.WithContext(ctx).Model(&Run{}).Where("id = ?", runID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun loads a run by id.
func (j *Journal) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	err := j.db.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return &run, nil
}

// Entries returns a run's rows in input order.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	var out []Entry
	err := j.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("row_index ASC").
		Find(&out).Error
	return out, err
}

// FailedGenes returns the gene ids whose lookup failed in a run, in input order.
func (j *Journal) FailedGenes(ctx context.Context, runID string) ([]string, error) {
	var out []string
	err := j.db.WithContext(ctx).
		Model(&Entry{}).
		Where("run_id = ? AND status = ?", runID, string(homology.StatusFailed)).
		Order("row_index ASC").
		Pluck("gene_id", &out).Error
	return out, err
}
