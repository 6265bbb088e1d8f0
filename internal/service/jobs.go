package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/far4599/ytdl-jobs/internal/repository"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type JobOptions struct {
	OutputDir string
	// Timeout bounds a single job, zero means no deadline.
	Timeout time.Duration
	// MaxConcurrent bounds running jobs, zero means unbounded. Waiting jobs stay pending.
	MaxConcurrent int64
}

// JobService runs downloads in the background and tracks them in the job registry.
type JobService struct {
	ctx       context.Context
	engine    Fetcher
	repo      *repository.JobRepository
	outputDir string
	timeout   time.Duration
	sem       *semaphore.Weighted

	mu      sync.Mutex
	running int
	// idle is closed when running drops to zero
	idle chan struct{}
}

// NewJobService creates the output directory if needed. Jobs are bound to ctx:
// cancelling it aborts everything still running.
func NewJobService(ctx context.Context, engine Fetcher, repo *repository.JobRepository, opts JobOptions) (*JobService, error) {
	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve output dir '%s'", opts.OutputDir)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output dir '%s'", outputDir)
	}

	s := &JobService{
		ctx:       ctx,
		engine:    engine,
		repo:      repo,
		outputDir: outputDir,
		timeout:   opts.Timeout,
	}
	if opts.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(opts.MaxConcurrent)
	}

	return s, nil
}

func (s *JobService) OutputDir() string {
	return s.outputDir
}

// StartDownload registers a job and returns without waiting for it.
// Only an invalid request is reported here, every later failure lands in the job record.
func (s *JobService) StartDownload(req models.DownloadRequest) (models.JobID, error) {
	req = req.WithDefaults()

	url, err := validateURL(req.URL)
	if err != nil {
		return "", err
	}
	req.URL = url

	policy := ResolvePolicy(req)

	id := s.repo.Create(models.JobKindSingle, req)

	log.Logger.Infow("download job submitted",
		"job_id", id,
		"url", req.URL,
		"quality", req.Quality,
		"format", req.Format,
		"audio_only", req.AudioOnly,
		"subtitles", req.IncludeSubtitles,
	)

	s.spawn(id, func(ctx context.Context) (*models.JobResult, error) {
		return s.download(ctx, id, req.URL, policy)
	})

	return id, nil
}

// GetStatus returns a snapshot of the job, or ErrUnknownJob.
func (s *JobService) GetStatus(id models.JobID) (*models.JobRecord, error) {
	return s.repo.Get(id)
}

// Stats counts registered jobs per state.
func (s *JobService) Stats() repository.Stats {
	return s.repo.Stats()
}

// WaitForJob polls the registry until the job reaches a terminal state.
func (s *JobService) WaitForJob(ctx context.Context, id models.JobID, interval time.Duration) (*models.JobRecord, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rec, err := s.repo.Get(id)
		if err != nil {
			return nil, err
		}
		if rec.State.IsTerminal() {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ResolveFile maps a bare filename to a file inside the output directory.
func (s *JobService) ResolveFile(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." || filename != filepath.Base(filename) {
		return "", errors.Wrapf(models.ErrFileNotFound, "'%s'", filename)
	}

	path := filepath.Join(s.outputDir, filename)

	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return "", errors.Wrapf(models.ErrFileNotFound, "'%s'", filename)
	}

	return path, nil
}

// Wait blocks until every spawned job finished or ctx is done.
func (s *JobService) Wait(ctx context.Context) error {
	s.mu.Lock()
	running, idle := s.running, s.idle
	s.mu.Unlock()

	if running == 0 {
		return nil
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type runFunc func(ctx context.Context) (*models.JobResult, error)

func (s *JobService) spawn(id models.JobID, run runFunc) {
	s.mu.Lock()
	if s.running == 0 {
		s.idle = make(chan struct{})
	}
	s.running++
	s.mu.Unlock()

	go func() {
		defer s.release()
		s.execute(id, run)
	}()
}

func (s *JobService) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running--
	if s.running == 0 {
		close(s.idle)
	}
}

func (s *JobService) execute(id models.JobID, run runFunc) {
	logger := log.Logger.With("job_id", id)

	var acquireErr error
	if s.sem != nil {
		if acquireErr = s.sem.Acquire(s.ctx, 1); acquireErr == nil {
			defer s.sem.Release(1)
		}
	}

	if err := s.repo.MarkRunning(id); err != nil {
		logger.Errorw("failed to start job", "error", err)
		return
	}

	if acquireErr != nil {
		s.finish(logger, id, models.Failed(errors.Wrap(acquireErr, "job aborted before start")))
		return
	}

	logger.Infow("job started")

	ctx, cancel := s.jobContext()
	defer cancel()

	result, err := run(ctx)
	if err != nil {
		s.finish(logger, id, models.Failed(err))
		return
	}

	s.finish(logger, id, models.Succeeded(result))
}

func (s *JobService) jobContext() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(s.ctx, s.timeout)
	}

	return context.WithCancel(s.ctx)
}

func (s *JobService) finish(logger *zap.SugaredLogger, id models.JobID, outcome models.Outcome) {
	if err := s.repo.Update(id, outcome); err != nil {
		logger.Errorw("failed to record job outcome", "error", err)
		return
	}

	if outcome.Err != nil {
		logger.Errorw("job failed", "error", outcome.Err)
		return
	}

	logger.Infow("job succeeded", "filename", outcome.Result.Filename, "title", outcome.Result.Title)
}

func (s *JobService) download(ctx context.Context, id models.JobID, url string, policy models.FormatPolicy) (*models.JobResult, error) {
	// the job id prefix keeps concurrent jobs with equal titles apart
	template := filepath.Join(s.outputDir, id.String()+"_%(title)s.%(ext)s")

	res, err := s.engine.Fetch(ctx, url, policy, template)
	if err != nil {
		return nil, err
	}

	path := res.OutputPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.outputDir, path)
	}

	// the engine predicts the name before post-processing changes the container
	if codec, ok := policy.ExtractsAudio(); ok {
		path = ReplaceExt(path, codec)
	}

	return &models.JobResult{
		Filename: filepath.Base(path),
		FilePath: path,
		Title:    res.ResolvedTitle,
		Size:     fileSize(path),
	}, nil
}

// ReplaceExt drops the last extension of path and appends ext.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + ext
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		log.Logger.Warnw("downloaded file is not accessible", "path", path, "error", err)
		return 0
	}

	return fi.Size()
}
