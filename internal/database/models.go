package database

import (
	"time"
)

// Run is one optimization run's header row.
type Run struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Status      string     `json:"status"` // completed, partial, failed

	PolicyStrategy string  `json:"policy_strategy"`
	PolicyMode     string  `json:"policy_mode"`
	MinSuccess     float64 `json:"min_success"`
	MaxCapacity    float64 `json:"max_capacity"`
	SuccessMode    string  `json:"success_mode"`

	Dispatches    int  `json:"dispatches"`
	Assigned      int  `json:"assigned"`
	Unassigned    int  `json:"unassigned"`
	Changed       int  `json:"changed"`
	PostOptPasses int  `json:"post_opt_passes"`
	PostOptMoves  int  `json:"post_opt_moves"`
	Partial       bool `json:"partial"`

	MeanSuccessBefore float64 `json:"mean_success_before"`
	MeanSuccessAfter  float64 `json:"mean_success_after"`
	MeanDistanceBefore float64 `json:"mean_distance_before"`
	MeanDistanceAfter  float64 `json:"mean_distance_after"`
	MeanGradeBefore    float64 `json:"mean_grade_before"`
	MeanGradeAfter     float64 `json:"mean_grade_after"`

	// Report is the rendered plain-text comparison block.
	Report string `json:"report"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignmentRecord is one persisted assignment row.
type AssignmentRecord struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	RunID string `json:"run_id" gorm:"index"`

	DispatchID   string    `json:"dispatch_id" gorm:"index"`
	TechnicianID string    `json:"technician_id" gorm:"index"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`

	PredictedSuccess     float64 `json:"predicted_success"`
	PredictedDurationMin float64 `json:"predicted_duration_min"`
	DistanceKm           float64 `json:"distance_km"`
	SkillMatchScore      float64 `json:"skill_match_score"`
	WorkloadRatio        float64 `json:"workload_ratio"`
	Score                float64 `json:"score"`
	FallbackLevel        int     `json:"fallback_level"`

	// Warnings is the semicolon-joined warning list.
	Warnings string `json:"warnings"`

	CreatedAt time.Time `json:"created_at"`
}

// UnassignedRecord is one dispatch the ladder could not place.
type UnassignedRecord struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	RunID string `json:"run_id" gorm:"index"`

	DispatchID string `json:"dispatch_id"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail"`

	CreatedAt time.Time `json:"created_at"`
}

// WarningRecord is one assignment warning, exploded for querying.
type WarningRecord struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	RunID string `json:"run_id" gorm:"index"`

	DispatchID   string `json:"dispatch_id"`
	TechnicianID string `json:"technician_id"`
	Warning      string `json:"warning"`

	CreatedAt time.Time `json:"created_at"`
}

// TrainingMetric captures one predictor's training diagnostics.
type TrainingMetric struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	RunID string `json:"run_id" gorm:"index"`

	Model string `json:"model"` // success, duration
	Mode  string `json:"mode"`
	Rows  int    `json:"rows"`

	TrainAccuracy float64 `json:"train_accuracy"`
	CVMAE         float64 `json:"cv_mae"`
	TestMAE       float64 `json:"test_mae"`
	TestR2        float64 `json:"test_r2"`

	CreatedAt time.Time `json:"created_at"`
}
