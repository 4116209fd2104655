package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/faiberforce/dispatch-optimizer/pkg/optimizer"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveResult persists one optimization run: header, assignment rows,
// unassigned rows, exploded warnings and training metrics, in one
// transaction.
func (r *Repository) SaveResult(res *optimizer.Result, report string) error {
	status := "completed"
	if res.Partial {
		status = "partial"
	}
	completed := time.Now()
	run := Run{
		ID:                 res.RunID,
		StartedAt:          res.GeneratedAt,
		CompletedAt:        &completed,
		Status:             status,
		PolicyStrategy:     string(res.Policy.Strategy),
		PolicyMode:         res.Policy.Mode,
		MinSuccess:         res.Policy.Thresholds.MinSuccess,
		MaxCapacity:        res.Policy.Thresholds.MaxCapacity,
		SuccessMode:        string(res.SuccessMode),
		Dispatches:         res.After.Dispatches,
		Assigned:           len(res.Assignments),
		Unassigned:         len(res.Unassigned),
		Changed:            res.Changed,
		PostOptPasses:      res.PostOptPasses,
		PostOptMoves:       res.PostOptMoves,
		Partial:            res.Partial,
		MeanSuccessBefore:  res.Before.MeanSuccess,
		MeanSuccessAfter:   res.After.MeanSuccess,
		MeanDistanceBefore: res.Before.MeanDistanceKm,
		MeanDistanceAfter:  res.After.MeanDistanceKm,
		MeanGradeBefore:    res.Before.MeanGrade,
		MeanGradeAfter:     res.After.MeanGrade,
		Report:             report,
	}

	assignments := make([]AssignmentRecord, 0, len(res.Assignments))
	var warnings []WarningRecord
	for _, a := range res.Assignments {
		assignments = append(assignments, AssignmentRecord{
			RunID:                res.RunID,
			DispatchID:           a.DispatchID,
			TechnicianID:         a.TechnicianID,
			Start:                a.Start,
			End:                  a.End,
			PredictedSuccess:     a.PredictedSuccess,
			PredictedDurationMin: a.PredictedDurationMin,
			DistanceKm:           a.DistanceKm,
			SkillMatchScore:      a.SkillMatchScore,
			WorkloadRatio:        a.WorkloadRatioAfter,
			Score:                a.Score,
			FallbackLevel:        int(a.FallbackLevel),
			Warnings:             strings.Join(a.Warnings, "; "),
		})
		for _, w := range a.Warnings {
			warnings = append(warnings, WarningRecord{
				RunID:        res.RunID,
				DispatchID:   a.DispatchID,
				TechnicianID: a.TechnicianID,
				Warning:      w,
			})
		}
	}

	unassigned := make([]UnassignedRecord, 0, len(res.Unassigned))
	for _, u := range res.Unassigned {
		unassigned = append(unassigned, UnassignedRecord{
			RunID:      res.RunID,
			DispatchID: u.DispatchID,
			Reason:     string(u.Reason),
			Detail:     u.Detail,
		})
	}

	metrics := []TrainingMetric{
		{
			RunID:         res.RunID,
			Model:         "success",
			Mode:          string(res.SuccessMode),
			Rows:          res.SuccessStats.Rows,
			TrainAccuracy: res.SuccessStats.TrainAccuracy,
		},
		{
			RunID:   res.RunID,
			Model:   "duration",
			Rows:    res.DurationStats.Rows,
			CVMAE:   res.DurationStats.CVMAE,
			TestMAE: res.DurationStats.Test.MAE,
			TestR2:  res.DurationStats.Test.R2,
		},
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(assignments) > 0 {
			if err := tx.CreateInBatches(assignments, 100).Error; err != nil {
				return err
			}
		}
		if len(unassigned) > 0 {
			if err := tx.CreateInBatches(unassigned, 100).Error; err != nil {
				return err
			}
		}
		if len(warnings) > 0 {
			if err := tx.CreateInBatches(warnings, 100).Error; err != nil {
				return err
			}
		}
		return tx.Create(&metrics).Error
	})
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(id string) (*Run, error) {
	var run Run
	err := r.db.First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns lists all runs, newest first
func (r *Repository) ListRuns() ([]Run, error) {
	var runs []Run
	err := r.db.Order("created_at DESC").Find(&runs).Error
	return runs, err
}

// GetAssignments retrieves a run's assignment rows
func (r *Repository) GetAssignments(runID string) ([]AssignmentRecord, error) {
	var rows []AssignmentRecord
	err := r.db.Where("run_id = ?", runID).Order("dispatch_id ASC").Find(&rows).Error
	return rows, err
}

// GetUnassigned retrieves a run's unassigned rows
func (r *Repository) GetUnassigned(runID string) ([]UnassignedRecord, error) {
	var rows []UnassignedRecord
	err := r.db.Where("run_id = ?", runID).Order("dispatch_id ASC").Find(&rows).Error
	return rows, err
}

// GetWarnings retrieves a run's warnings, optionally filtered by
// technician.
func (r *Repository) GetWarnings(runID string, technicianID string) ([]WarningRecord, error) {
	var rows []WarningRecord
	query := r.db.Where("run_id = ?", runID)
	if technicianID != "" {
		query = query.Where("technician_id = ?", technicianID)
	}
	err := query.Order("dispatch_id ASC").Find(&rows).Error
	return rows, err
}

// GetTrainingMetrics retrieves a run's training diagnostics
func (r *Repository) GetTrainingMetrics(runID string) ([]TrainingMetric, error) {
	var rows []TrainingMetric
	err := r.db.Where("run_id = ?", runID).Find(&rows).Error
	return rows, err
}

// GetReport returns the rendered report text for a run
func (r *Repository) GetReport(runID string) (string, error) {
	run, err := r.GetRun(runID)
	if err != nil {
		return "", fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return run.Report, nil
}

// DeleteRun deletes a run and all related rows
func (r *Repository) DeleteRun(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&AssignmentRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&UnassignedRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&WarningRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&TrainingMetric{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Run{}).Error
	})
}
