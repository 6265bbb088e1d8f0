package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/far4599/ytdl-jobs/internal/config"
	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/repository"
	"github.com/far4599/ytdl-jobs/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{}

func (stubEngine) Probe(_ context.Context, url string) (*models.Metadata, error) {
	if strings.Contains(url, "private") {
		return nil, models.NewEngineError(models.ErrExtractionFailure, "ERROR: [youtube] x: Private video")
	}

	title := "Chapter One"
	start, end := 0.0, 30.0
	duration := 61.0

	return &models.Metadata{
		Title:    "Clip",
		Duration: &duration,
		Uploader: "Chan",
		Chapters: []models.RawChapter{{Title: &title, StartTime: &start, EndTime: &end}},
	}, nil
}

func (stubEngine) Fetch(_ context.Context, url string, _ models.FormatPolicy, template string) (*models.FetchResult, error) {
	if strings.Contains(url, "private") {
		return nil, models.NewEngineError(models.ErrExtractionFailure, "ERROR: [youtube] x: Private video")
	}

	path := strings.NewReplacer("%(title)s", "Clip", "%(ext)s", "mp4").Replace(template)
	if err := os.WriteFile(path, []byte("media bytes"), 0o644); err != nil {
		return nil, err
	}

	return &models.FetchResult{OutputPath: path, ResolvedTitle: "Clip"}, nil
}

func (stubEngine) FetchPlaylist(_ context.Context, _ string, _ models.FormatPolicy, template string) (*models.PlaylistFetch, error) {
	dir := filepath.Dir(template)

	return &models.PlaylistFetch{
		PlaylistTitle: "Mix",
		Entries: []models.FetchResult{
			{OutputPath: filepath.Join(dir, "a.mp4")},
			{OutputPath: filepath.Join(dir, "b.mp4")},
		},
	}, nil
}

func newTestServer(t *testing.T, conf config.HTTPConfig) (*httptest.Server, *service.JobService) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	engine := stubEngine{}
	vs := service.NewVideoService(engine, 1, nil)
	js, err := service.NewJobService(ctx, engine, repository.NewJobRepository(time.Hour, 0), service.JobOptions{
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(NewHandler(vs, js), conf))
	t.Cleanup(srv.Close)

	return srv, js
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp, out
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp, out
}

func TestVideoInfo(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	resp, body := post(t, srv, "/api/video-info", `{"url":"https://example.com/v"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Clip", body["title"])
	assert.Equal(t, 61.0, body["duration"])
	assert.Equal(t, float64(1), body["chapter_count"])
	assert.Nil(t, body["view_count"])

	chapters := body["chapters"].([]any)
	require.Len(t, chapters, 1)
	assert.Equal(t, map[string]any{
		"number":     1.0,
		"title":      "Chapter One",
		"start_time": 0.0,
		"end_time":   30.0,
	}, chapters[0])
}

func TestVideoInfo_Errors(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	resp, body := post(t, srv, "/api/video-info", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": false, "error": "URL is required"}, body)

	resp, body = post(t, srv, "/api/video-info", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", body["error"])

	resp, body = post(t, srv, "/api/video-info", `{"url":"https://example.com/private"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": false, "error": "ERROR: [youtube] x: Private video"}, body)
}

func TestDownloadFlow(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	resp, body := post(t, srv, "/api/download", `{"url":"https://example.com/v","quality":"720p"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Download started", body["message"])

	id, _ := body["download_id"].(string)
	require.NotEmpty(t, id)

	var status map[string]any
	require.Eventually(t, func() bool {
		_, status = get(t, srv, "/api/download-status/"+id)
		return status["status"] == string(models.JobStateSucceeded)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, true, status["success"])
	assert.Equal(t, id+"_Clip.mp4", status["filename"])
	assert.Equal(t, "Clip", status["title"])
	assert.Equal(t, float64(len("media bytes")), status["size"])

	fileResp, err := http.Get(srv.URL + "/api/download-file/" + id + "_Clip.mp4")
	require.NoError(t, err)
	defer fileResp.Body.Close()

	assert.Equal(t, http.StatusOK, fileResp.StatusCode)
	assert.Contains(t, fileResp.Header.Get("Content-Disposition"), "attachment")
	assert.Equal(t, int64(len("media bytes")), fileResp.ContentLength)
}

func TestDownload_Failed(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	_, body := post(t, srv, "/api/download", `{"url":"https://example.com/private"}`)
	id := body["download_id"].(string)

	var status map[string]any
	require.Eventually(t, func() bool {
		_, status = get(t, srv, "/api/download-status/"+id)
		return status["status"] == string(models.JobStateFailed)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, false, status["success"])
	assert.Equal(t, "ERROR: [youtube] x: Private video", status["error"])
}

func TestDownload_MissingURL(t *testing.T) {
	srv, js := newTestServer(t, config.HTTPConfig{})

	resp, body := post(t, srv, "/api/download", `{"quality":"best"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "URL is required", body["error"])
	assert.Zero(t, js.Stats())
}

func TestDownloadStatus_Unknown(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	resp, body := get(t, srv, "/api/download-status/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, map[string]any{"status": "not_found"}, body)
}

func TestDownloadFile_NotFound(t *testing.T) {
	srv, js := newTestServer(t, config.HTTPConfig{})

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(js.OutputDir()), "secret"), []byte("x"), 0o644))

	for _, name := range []string{"missing.mp4", "..%2Fsecret"} {
		resp, body := get(t, srv, "/api/download-file/"+name)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, name)
		assert.Equal(t, "File not found", body["error"], name)
	}
}

func TestPlaylistDownload(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	resp, body := post(t, srv, "/api/playlist-download", `{"url":"https://example.com/list"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"success": true, "playlist_title": "Mix", "video_count": 2.0}, body)
}

func TestPlaylistJob(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	_, body := post(t, srv, "/api/playlist-jobs", `{"url":"https://example.com/list"}`)
	assert.Equal(t, "Playlist download started", body["message"])
	id := body["download_id"].(string)

	var status map[string]any
	require.Eventually(t, func() bool {
		_, status = get(t, srv, "/api/download-status/"+id)
		return status["status"] == string(models.JobStateSucceeded)
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "playlist", status["kind"])
	assert.Equal(t, "Mix", status["playlist_title"])
	assert.Equal(t, 2.0, status["video_count"])
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{})

	resp, body := get(t, srv, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"pending": 0.0, "running": 0.0, "succeeded": 0.0, "failed": 0.0}, body["jobs"])
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, config.HTTPConfig{RateLimit: 0.001, RateBurst: 1})

	resp, _ := post(t, srv, "/api/video-info", `{"url":"https://example.com/v"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := post(t, srv, "/api/video-info", `{"url":"https://example.com/v"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many requests", body["error"])

	// reads are never limited
	resp, _ = get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
