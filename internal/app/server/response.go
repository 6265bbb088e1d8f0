package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/pkg/errors"
)

type downloadRequest struct {
	URL       string `json:"url"`
	Quality   string `json:"quality"`
	Format    string `json:"format"`
	Subtitles bool   `json:"subtitles"`
	AudioOnly bool   `json:"audioOnly"`
}

func (r downloadRequest) toModel() models.DownloadRequest {
	return models.DownloadRequest{
		URL:              r.URL,
		Quality:          r.Quality,
		Format:           r.Format,
		AudioOnly:        r.AudioOnly,
		IncludeSubtitles: r.Subtitles,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type chapterResponse struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type videoInfoResponse struct {
	Success      bool              `json:"success"`
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	Duration     *float64          `json:"duration"`
	Uploader     string            `json:"uploader"`
	ViewCount    *int64            `json:"view_count"`
	Thumbnail    string            `json:"thumbnail"`
	Chapters     []chapterResponse `json:"chapters"`
	ChapterCount int               `json:"chapter_count"`
	Description  string            `json:"description"`
}

func toVideoInfoResponse(info *models.VideoInfo) videoInfoResponse {
	chapters := make([]chapterResponse, 0, len(info.Chapters))
	for _, c := range info.Chapters {
		chapters = append(chapters, chapterResponse{
			Number:    c.Number,
			Title:     c.Title,
			StartTime: c.StartTime,
			EndTime:   c.EndTime,
		})
	}

	return videoInfoResponse{
		Success:      true,
		URL:          info.URL,
		Title:        info.Title,
		Duration:     info.Duration,
		Uploader:     info.Uploader,
		ViewCount:    info.ViewCount,
		Thumbnail:    info.ThumbURL,
		Chapters:     chapters,
		ChapterCount: info.ChapterCount,
		Description:  info.Description,
	}
}

type submittedResponse struct {
	Success    bool   `json:"success"`
	DownloadID string `json:"download_id"`
	Message    string `json:"message"`
}

type playlistResponse struct {
	Success       bool   `json:"success"`
	PlaylistTitle string `json:"playlist_title"`
	VideoCount    int    `json:"video_count"`
}

// statusResponse keeps the field names of the original download status payload.
// Success is only present once the job is terminal.
type statusResponse struct {
	Success       *bool      `json:"success,omitempty"`
	Status        string     `json:"status"`
	DownloadID    string     `json:"download_id,omitempty"`
	Kind          string     `json:"kind,omitempty"`
	Filename      string     `json:"filename,omitempty"`
	FilePath      string     `json:"filepath,omitempty"`
	Title         string     `json:"title,omitempty"`
	Size          int64      `json:"size,omitempty"`
	PlaylistTitle string     `json:"playlist_title,omitempty"`
	VideoCount    int        `json:"video_count,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

func toStatusResponse(rec *models.JobRecord) statusResponse {
	resp := statusResponse{
		Status:     string(rec.State),
		DownloadID: rec.ID.String(),
		Kind:       string(rec.Kind),
		Error:      rec.Error,
		CreatedAt:  &rec.CreatedAt,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}

	if rec.State.IsTerminal() {
		success := rec.State == models.JobStateSucceeded
		resp.Success = &success
	}

	if res := rec.Result; res != nil {
		resp.Filename = res.Filename
		resp.FilePath = res.FilePath
		resp.Title = res.Title
		resp.Size = res.Size
		resp.PlaylistTitle = res.PlaylistTitle
		resp.VideoCount = res.VideoCount
	}

	return resp
}

type healthResponse struct {
	Status string         `json:"status"`
	Jobs   map[string]int `json:"jobs"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Logger.Errorw("failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrFileNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found"})
	case errors.Is(err, models.ErrUnknownJob):
		writeJSON(w, http.StatusNotFound, statusResponse{Status: "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
