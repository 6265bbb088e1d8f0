package service

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/far4599/ytdl-jobs/internal/models"
)

type fetchCall struct {
	URL      string
	Policy   models.FormatPolicy
	Template string
}

type fakeEngine struct {
	mu sync.Mutex

	probe    func(ctx context.Context, url string) (*models.Metadata, error)
	fetch    func(ctx context.Context, call fetchCall) (*models.FetchResult, error)
	playlist func(ctx context.Context, call fetchCall) (*models.PlaylistFetch, error)

	probeCalls int
	fetchCalls []fetchCall
}

func (e *fakeEngine) Probe(ctx context.Context, url string) (*models.Metadata, error) {
	e.mu.Lock()
	e.probeCalls++
	e.mu.Unlock()

	return e.probe(ctx, url)
}

func (e *fakeEngine) Fetch(ctx context.Context, url string, policy models.FormatPolicy, outputTemplate string) (*models.FetchResult, error) {
	call := fetchCall{URL: url, Policy: policy, Template: outputTemplate}

	e.mu.Lock()
	e.fetchCalls = append(e.fetchCalls, call)
	e.mu.Unlock()

	return e.fetch(ctx, call)
}

func (e *fakeEngine) FetchPlaylist(ctx context.Context, url string, policy models.FormatPolicy, outputTemplate string) (*models.PlaylistFetch, error) {
	return e.playlist(ctx, fetchCall{URL: url, Policy: policy, Template: outputTemplate})
}

func (e *fakeEngine) probeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.probeCalls
}

// render fills the output template the way yt-dlp would and creates the file.
func render(template, title, ext string) (string, error) {
	path := strings.NewReplacer("%(title)s", title, "%(ext)s", ext).Replace(template)

	return path, os.WriteFile(path, []byte("media"), 0o644)
}
