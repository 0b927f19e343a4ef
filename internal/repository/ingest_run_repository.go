package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"spacebio-rag/internal/model"
)

type IngestRunRepository struct {
	db *gorm.DB
}

func NewIngestRunRepository(db *gorm.DB) *IngestRunRepository {
	return &IngestRunRepository{db: db}
}

// AutoMigrate creates or updates the ingest_runs table.
func (r *IngestRunRepository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&model.IngestRun{}); err != nil {
		return fmt.Errorf("migrate ingest runs failed: %w", err)
	}
	return nil
}

func (r *IngestRunRepository) Create(run *model.IngestRun) error {
	if err := r.db.Create(run).Error; err != nil {
		return fmt.Errorf("create ingest run failed: %w", err)
	}
	return nil
}

func (r *IngestRunRepository) GetByID(id string) (*model.IngestRun, error) {
	var run model.IngestRun
	if err := r.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query ingest run failed: %w", err)
	}
	return &run, nil
}

func (r *IngestRunRepository) MarkRunning(id string, startedAt time.Time) error {
	err := r.db.Model(&model.IngestRun{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     model.IngestStatusRunning,
		"started_at": startedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("mark ingest run running failed: %w", err)
	}
	return nil
}

// Finish stores the final counters and status of a run.
func (r *IngestRunRepository) Finish(run *model.IngestRun) error {
	err := r.db.Model(&model.IngestRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"status":      run.Status,
		"build_id":    run.BuildID,
		"documents":   run.Documents,
		"chunks":      run.Chunks,
		"vectors":     run.Vectors,
		"error":       run.Error,
		"finished_at": run.FinishedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("finish ingest run failed: %w", err)
	}
	return nil
}

func (r *IngestRunRepository) ListRecent(limit int) ([]model.IngestRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []model.IngestRun
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list ingest runs failed: %w", err)
	}
	return list, nil
}
