package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/far4599/ytdl-jobs/internal/models"
)

// Prober reads source metadata without downloading.
type Prober interface {
	Probe(ctx context.Context, url string) (*models.Metadata, error)
}

// Fetcher downloads single items and whole playlists.
type Fetcher interface {
	Fetch(ctx context.Context, url string, policy models.FormatPolicy, outputTemplate string) (*models.FetchResult, error)
	FetchPlaylist(ctx context.Context, url string, policy models.FormatPolicy, outputTemplate string) (*models.PlaylistFetch, error)
}

// FetchEngine is everything the services need from the external downloader.
type FetchEngine interface {
	Prober
	Fetcher
}

func validateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", models.NewRequestError("URL is required")
	}

	normalized := trimmed
	// yt-dlp accepts bare hosts like youtube.com/watch?v=x
	if !strings.Contains(normalized, "://") && !strings.HasPrefix(normalized, "/") {
		normalized = "https://" + normalized
	}

	u, err := url.ParseRequestURI(normalized)
	if err != nil || u.Host == "" {
		return "", models.NewRequestError("malformed URL '%s'", trimmed)
	}

	return normalized, nil
}
