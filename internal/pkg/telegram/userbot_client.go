package telegram

import (
	"context"
	"os"
	"path/filepath"

	"github.com/far4599/ytdl-jobs/internal/config"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/pkg/errors"
)

// UserBotClient uploads files over MTProto, which has no Bot API size limit.
type UserBotClient struct {
	conf *config.Config

	client *telegram.Client
	ready  chan struct{}
}

func NewUserBotClient(conf *config.Config) *UserBotClient {
	opts := telegram.Options{
		Logger:    log.Logger.Desugar(),
		NoUpdates: true,
		SessionStorage: &session.FileStorage{
			Path: filepath.Join(conf.Telegram.App.SessionDir, "session.json"),
		},
	}

	return &UserBotClient{
		conf:   conf,
		client: telegram.NewClient(conf.Telegram.App.ID, conf.Telegram.App.Hash, opts),
		ready:  make(chan struct{}),
	}
}

// Enabled reports whether app credentials for MTProto were configured.
func Enabled(conf *config.Config) bool {
	return conf.Telegram.App.ID != 0 && conf.Telegram.App.Hash != ""
}

// Run logs in with the bot token and keeps the connection until ctx is done.
func (c *UserBotClient) Run(ctx context.Context) error {
	sessionDir := c.conf.Telegram.App.SessionDir
	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return errors.Wrapf(err, "failed to create sessions dir '%s'", sessionDir)
	}

	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get auth status")
		}

		if !status.Authorized {
			if _, err := c.client.Auth().Bot(ctx, c.conf.Telegram.Bot.Token); err != nil {
				return errors.Wrap(err, "failed to login as userbot")
			}
		}

		log.Logger.Info("userbot connected")
		close(c.ready)

		return telegram.RunUntilCanceled(ctx, c.client)
	})
}

func (c *UserBotClient) UploadFile(ctx context.Context, to tg.InputPeerClass, title, filePath string, audio bool, progress uploader.Progress) error {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "userbot is not connected")
	}

	api := c.client.API()
	u := uploader.NewUploader(api)
	if progress != nil {
		u = u.WithProgress(progress)
	}
	s := message.NewSender(api).WithUploader(u)

	f, err := u.FromPath(ctx, filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to upload '%s'", filePath)
	}

	var md message.MediaOption
	if audio {
		md = message.Audio(f).Title(title).Performer(title)
	} else {
		md = message.Video(f, styling.Plain(title))
	}

	if _, err = s.To(to).Media(ctx, md); err != nil {
		return errors.Wrapf(err, "failed to send '%s'", filepath.Base(filePath))
	}

	return nil
}
