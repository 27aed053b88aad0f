package models

import (
	"time"
)

// RunStatus is the state of a run or of one of its stages
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// StageRecord is the ledger entry for one stage of a run
type StageRecord struct {
	Stage      string     `json:"stage"`
	Status     RunStatus  `json:"status"`
	Artifact   string     `json:"artifact,omitempty"` // path of the file the stage produced or reused
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunRecord is the ledger entry for one pipeline run, keyed by RunID (YYYYMMDD_HHMM)
type RunRecord struct {
	RunID         string        `json:"run_id"`
	CorrelationID string        `json:"correlation_id"` // uuid, distinguishes re-runs of the same RunID
	Status        RunStatus     `json:"status"`
	TargetDate    string        `json:"target_date"`
	Stages        []StageRecord `json:"stages"`
	VideoID       string        `json:"video_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Stage returns the latest record for the named stage, or nil
func (r *RunRecord) Stage(name string) *StageRecord {
	for i := len(r.Stages) - 1; i >= 0; i-- {
		if r.Stages[i].Stage == name {
			return &r.Stages[i]
		}
	}
	return nil
}

// UploadMetadata is what the upload service needs besides the video file
type UploadMetadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string // private, unlisted or public
	Language    string
}
