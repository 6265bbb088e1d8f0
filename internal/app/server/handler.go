package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"os"

	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/far4599/ytdl-jobs/internal/service"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	vs *service.VideoService
	js *service.JobService
}

func NewHandler(vs *service.VideoService, js *service.JobService) *Handler {
	return &Handler{
		vs: vs,
		js: js,
	}
}

func (h *Handler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}

	info, err := h.vs.GetVideoInfo(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toVideoInfoResponse(info))
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}

	id, err := h.js.StartDownload(req.toModel())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submittedResponse{
		Success:    true,
		DownloadID: id.String(),
		Message:    "Download started",
	})
}

func (h *Handler) DownloadStatus(w http.ResponseWriter, r *http.Request) {
	id := models.JobID(chi.URLParam(r, "id"))

	rec, err := h.js.GetStatus(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(rec))
}

// DownloadFile sends a finished file as an attachment.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	path, err := h.js.ResolveFile(filename)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Logger.Errorw("failed to open file", "path", path, "error", err)
		writeError(w, models.ErrFileNotFound)
		return
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	http.ServeContent(w, r, filename, fi.ModTime(), f)
}

// PlaylistDownload blocks until the whole playlist has been fetched.
func (h *Handler) PlaylistDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}

	res, err := h.js.GetPlaylist(req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlistResponse{
		Success:       true,
		PlaylistTitle: res.PlaylistTitle,
		VideoCount:    res.VideoCount,
	})
}

func (h *Handler) PlaylistJob(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}

	id, err := h.js.StartPlaylist(req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submittedResponse{
		Success:    true,
		DownloadID: id.String(),
		Message:    "Playlist download started",
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	stats := h.js.Stats()

	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Jobs: map[string]int{
			string(models.JobStatePending):   stats.Pending,
			string(models.JobStateRunning):   stats.Running,
			string(models.JobStateSucceeded): stats.Succeeded,
			string(models.JobStateFailed):    stats.Failed,
		},
	})
}

func decode(w http.ResponseWriter, r *http.Request) (downloadRequest, bool) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return req, false
	}

	return req, true
}
