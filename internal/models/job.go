package models

import (
	"time"
)

type JobID string

func (id JobID) String() string {
	return string(id)
}

type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// IsTerminal reports whether no further transitions can happen.
func (s JobState) IsTerminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

type JobKind string

const (
	JobKindSingle   JobKind = "single"
	JobKindPlaylist JobKind = "playlist"
)

type JobResult struct {
	Filename string
	FilePath string
	Title    string
	Size     int64

	// set for playlist jobs only
	PlaylistTitle string
	VideoCount    int
}

type JobRecord struct {
	ID      JobID
	Kind    JobKind
	State   JobState
	Request DownloadRequest
	Result  *JobResult
	Error   string

	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Outcome is the terminal write for a job: exactly one of Result or Err is set.
type Outcome struct {
	Result *JobResult
	Err    error
}

func Succeeded(result *JobResult) Outcome {
	return Outcome{Result: result}
}

func Failed(err error) Outcome {
	return Outcome{Err: err}
}

// Clone returns a copy that shares no mutable state with the receiver.
func (r *JobRecord) Clone() *JobRecord {
	c := *r
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}

	return &c
}
