package repository

import (
	"sync"
	"time"

	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// JobRepository is the process wide registry of download jobs.
//
// All reads and transitions go through one mutex, so the state machine
// pending -> running -> succeeded|failed is enforced here and not by callers.
// Terminal records expire after ttl; pending and running records never do.
type JobRepository struct {
	mu    sync.Mutex
	store *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewJobRepository(ttl, cleanupInterval time.Duration) *JobRepository {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	store := cache.New(cache.NoExpiration, cleanupInterval)
	store.OnEvicted(func(id string, _ interface{}) {
		log.Logger.Debugw("job record evicted", "job_id", id)
	})

	return &JobRepository{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Create stores a fresh pending record and returns its identifier.
func (r *JobRepository) Create(kind models.JobKind, req models.DownloadRequest) models.JobID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := models.JobID(uuid.New().String())

	r.store.Set(id.String(), &models.JobRecord{
		ID:        id,
		Kind:      kind,
		State:     models.JobStatePending,
		Request:   req,
		CreatedAt: r.now(),
	}, cache.NoExpiration)

	return id
}

// MarkRunning moves a pending job to running.
func (r *JobRepository) MarkRunning(id models.JobID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.get(id)
	if err != nil {
		return err
	}

	if rec.State != models.JobStatePending {
		return errors.Errorf("job %s cannot start from state %s", id, rec.State)
	}

	now := r.now()
	rec.State = models.JobStateRunning
	rec.StartedAt = &now

	return nil
}

// Update writes the terminal outcome of a running job. A second call for the same
// job leaves the stored record untouched and returns ErrAlreadyTerminal.
func (r *JobRepository) Update(id models.JobID, outcome models.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.get(id)
	if err != nil {
		return err
	}

	if rec.State.IsTerminal() {
		log.Logger.Warnw("ignoring update of finished job", "job_id", id, "state", rec.State)
		return errors.Wrapf(models.ErrAlreadyTerminal, "job %s", id)
	}
	if rec.State != models.JobStateRunning {
		return errors.Errorf("job %s has not started", id)
	}

	now := r.now()
	rec.FinishedAt = &now

	if outcome.Err != nil {
		rec.State = models.JobStateFailed
		rec.Error = outcome.Err.Error()
	} else {
		rec.State = models.JobStateSucceeded
		rec.Result = outcome.Result
		if rec.Result == nil {
			rec.Result = &models.JobResult{}
		}
	}

	// re-set to start the ttl countdown of the now finished record
	r.store.Set(id.String(), rec, r.ttl)

	return nil
}

// Get returns a copy of the record, so callers never observe later transitions.
func (r *JobRepository) Get(id models.JobID) (*models.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}

	return rec.Clone(), nil
}

type Stats struct {
	Pending   int
	Running   int
	Succeeded int
	Failed    int
}

func (r *JobRepository) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats Stats
	for _, item := range r.store.Items() {
		rec, ok := item.Object.(*models.JobRecord)
		if !ok {
			continue
		}

		switch rec.State {
		case models.JobStatePending:
			stats.Pending++
		case models.JobStateRunning:
			stats.Running++
		case models.JobStateSucceeded:
			stats.Succeeded++
		case models.JobStateFailed:
			stats.Failed++
		}
	}

	return stats
}

func (r *JobRepository) get(id models.JobID) (*models.JobRecord, error) {
	v, ok := r.store.Get(id.String())
	if !ok {
		return nil, errors.Wrapf(models.ErrUnknownJob, "job %s", id)
	}

	rec, ok := v.(*models.JobRecord)
	if !ok {
		r.store.Delete(id.String())
		return nil, errors.Wrapf(models.ErrUnknownJob, "job %s", id)
	}

	return rec, nil
}
