package service

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/hash"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/far4599/ytdl-jobs/internal/repository"
	"github.com/pkg/errors"
)

const maxDescriptionLength = 300

type VideoService struct {
	engine   Prober
	maxRetry uint
	repo     *repository.InMemRepository
}

// NewVideoService creates the metadata probe. Probe results are only cached when repo is set,
// a nil repo makes every call reach the engine.
func NewVideoService(engine Prober, maxRetry uint, repo *repository.InMemRepository) *VideoService {
	if maxRetry == 0 {
		maxRetry = 1
	}

	return &VideoService{
		engine:   engine,
		maxRetry: maxRetry,
		repo:     repo,
	}
}

// GetVideoInfo probes url. Engine failures are returned with the engine's message.
func (s *VideoService) GetVideoInfo(ctx context.Context, url string) (*models.VideoInfo, error) {
	url, err := validateURL(url)
	if err != nil {
		return nil, err
	}

	if info, ok := s.getFromCache(url); ok {
		return info, nil
	}

	var md *models.Metadata
	err = retry.Do(
		func() error {
			res, errP := s.engine.Probe(ctx, url)
			if errP != nil {
				return errP
			}

			md = res

			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.maxRetry),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Logger.Debugw("probe attempt failed", "url", url, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		log.Logger.Infow("probe failed", "url", url, "error", err)
		return nil, err
	}

	info := normalize(url, md)
	s.saveToCache(url, info)

	return info, nil
}

func normalize(url string, md *models.Metadata) *models.VideoInfo {
	info := &models.VideoInfo{
		URL:         url,
		Title:       md.Title,
		Duration:    md.Duration,
		Uploader:    md.Uploader,
		ViewCount:   md.ViewCount,
		ThumbURL:    md.Thumbnail,
		Chapters:    chapters(md.Chapters),
		Description: truncate(md.Description, maxDescriptionLength),
	}
	info.ChapterCount = len(info.Chapters)

	return info
}

func chapters(raw []models.RawChapter) []models.ChapterInfo {
	result := make([]models.ChapterInfo, 0, len(raw))
	for i, ch := range raw {
		c := models.ChapterInfo{
			Number: i + 1,
			Title:  fmt.Sprintf("Chapter %d", i+1),
		}
		if ch.Title != nil {
			c.Title = *ch.Title
		}
		if ch.StartTime != nil {
			c.StartTime = *ch.StartTime
		}
		if ch.EndTime != nil {
			c.EndTime = *ch.EndTime
		}

		result = append(result, c)
	}

	return result
}

// truncate cuts s to max characters and marks the cut with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max]) + "..."
}

func (s *VideoService) saveToCache(url string, info *models.VideoInfo) {
	if s.repo == nil {
		return
	}

	s.repo.Add(hash.URLKey(url), info.Clone())
}

func (s *VideoService) getFromCache(url string) (*models.VideoInfo, bool) {
	if s.repo == nil {
		return nil, false
	}

	key := hash.URLKey(url)

	cached, ok := s.repo.Get(key)
	if !ok {
		return nil, false
	}

	info, ok := cached.(*models.VideoInfo)
	if !ok {
		defer s.repo.Remove(key)
		return nil, false
	}

	return info.Clone(), true
}

// IsInvalidRequest reports whether err was caused by the caller's input.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, models.ErrInvalidRequest)
}
