package service

import (
	"context"
	"path/filepath"

	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
)

// GetPlaylist downloads a whole playlist and blocks until it is done.
// The download is bound to the service lifetime, a caller that stops waiting does not abort it.
func (s *JobService) GetPlaylist(url string) (*models.PlaylistResult, error) {
	url, err := validateURL(url)
	if err != nil {
		return nil, err
	}

	log.Logger.Infow("playlist download started", "url", url)

	fetch, err := s.playlist(s.ctx, url)
	if err != nil {
		log.Logger.Errorw("playlist download failed", "url", url, "error", err)
		return nil, err
	}

	log.Logger.Infow("playlist download finished", "url", url, "playlist", fetch.PlaylistTitle, "videos", len(fetch.Entries))

	return &models.PlaylistResult{
		PlaylistTitle: fetch.PlaylistTitle,
		VideoCount:    len(fetch.Entries),
	}, nil
}

// StartPlaylist runs the same download as GetPlaylist as a tracked background job.
func (s *JobService) StartPlaylist(url string) (models.JobID, error) {
	url, err := validateURL(url)
	if err != nil {
		return "", err
	}

	policy := PlaylistPolicy()
	req := models.DownloadRequest{
		URL:     url,
		Quality: models.QualityBest,
		Format:  policy.MergeFormat,
	}

	id := s.repo.Create(models.JobKindPlaylist, req)

	log.Logger.Infow("playlist job submitted", "job_id", id, "url", url)

	s.spawn(id, func(ctx context.Context) (*models.JobResult, error) {
		fetch, err := s.playlist(ctx, url)
		if err != nil {
			return nil, err
		}

		result := &models.JobResult{
			Title:         fetch.PlaylistTitle,
			PlaylistTitle: fetch.PlaylistTitle,
			VideoCount:    len(fetch.Entries),
		}
		if len(fetch.Entries) > 0 && fetch.Entries[0].OutputPath != "" {
			result.FilePath = filepath.Dir(fetch.Entries[0].OutputPath)
		}

		return result, nil
	})

	return id, nil
}

func (s *JobService) playlist(ctx context.Context, url string) (*models.PlaylistFetch, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	template := filepath.Join(s.outputDir, "%(playlist)s", "%(title)s.%(ext)s")

	return s.engine.FetchPlaylist(ctx, url, PlaylistPolicy(), template)
}
