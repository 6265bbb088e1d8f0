package app

import (
	"context"

	"github.com/far4599/ytdl-jobs/internal/app/bot"
	"github.com/far4599/ytdl-jobs/internal/app/server"
	"github.com/far4599/ytdl-jobs/internal/config"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/far4599/ytdl-jobs/internal/pkg/ytdlp"
	"github.com/far4599/ytdl-jobs/internal/repository"
	"github.com/far4599/ytdl-jobs/internal/service"
	"golang.org/x/sync/errgroup"
)

type App struct {
	conf *config.Config
}

func NewApp(conf *config.Config) *App {
	return &App{
		conf: conf,
	}
}

func (app *App) Run(ctx context.Context) error {
	if err := log.Setup(app.conf.Log.Level, app.conf.Log.Development()); err != nil {
		return err
	}
	defer log.Logger.Sync()

	var probeCache *repository.InMemRepository
	if app.conf.Cache.Enabled {
		var err error
		if probeCache, err = repository.NewInMemRepository(app.conf.Cache.Size); err != nil {
			return err
		}
	}

	engine := ytdlp.NewClient(ytdlp.Options{
		Binary:   app.conf.Downloader.Binary,
		CacheDir: app.conf.Downloader.CacheDir,
	})

	vs := service.NewVideoService(engine, app.conf.Downloader.ProbeAttempts, probeCache)

	jobs := repository.NewJobRepository(app.conf.Registry.TTL, app.conf.Registry.CleanupInterval)

	js, err := service.NewJobService(ctx, engine, jobs, service.JobOptions{
		OutputDir:     app.conf.Downloader.OutputDir,
		Timeout:       app.conf.Downloader.JobTimeout,
		MaxConcurrent: app.conf.Downloader.MaxConcurrentJobs,
	})
	if err != nil {
		return err
	}

	log.Logger.Infow("download service ready", "output_dir", js.OutputDir())

	errGroup, errCtx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		return server.NewServer(app.conf.HTTP, server.NewHandler(vs, js)).Run(errCtx)
	})

	if app.conf.Telegram.Bot.Token != "" {
		errGroup.Go(func() error {
			return bot.NewApp(app.conf, vs, js).Run(errCtx)
		})
	} else {
		log.Logger.Info("telegram bot token is not set, bot is disabled")
	}

	err = errGroup.Wait()

	// jobs share ctx, so they are already cancelled once the signal arrived
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.conf.HTTP.ShutdownTimeout)
	defer cancel()

	if waitErr := js.Wait(shutdownCtx); waitErr != nil {
		log.Logger.Warnw("jobs did not finish before shutdown", "error", waitErr)
	}

	return err
}
