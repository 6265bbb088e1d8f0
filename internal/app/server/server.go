package server

import (
	"context"
	"net/http"

	"github.com/far4599/ytdl-jobs/internal/config"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

// NewRouter wires the download API. Rate limiting applies to routes that start work only.
func NewRouter(h *Handler, conf config.HTTPConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/download-status/{id}", h.DownloadStatus)
		r.Get("/download-file/{filename}", h.DownloadFile)

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(conf.RateLimit, conf.RateBurst))

			r.Post("/video-info", h.VideoInfo)
			r.Post("/download", h.Download)
			r.Post("/playlist-download", h.PlaylistDownload)
			r.Post("/playlist-jobs", h.PlaylistJob)
		})
	})

	return r
}

type Server struct {
	conf config.HTTPConfig
	srv  *http.Server
}

func NewServer(conf config.HTTPConfig, h *Handler) *Server {
	return &Server{
		conf: conf,
		srv: &http.Server{
			Addr:         conf.Addr,
			Handler:      NewRouter(h, conf),
			ReadTimeout:  conf.ReadTimeout,
			WriteTimeout: conf.WriteTimeout,
		},
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Logger.Infow("http server listening", "addr", s.conf.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.conf.ShutdownTimeout)
	defer cancel()

	log.Logger.Info("http server shutting down")

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	return nil
}
