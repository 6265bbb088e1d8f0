package bot

import (
	"context"

	"github.com/far4599/ytdl-jobs/internal/config"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/far4599/ytdl-jobs/internal/pkg/telegram"
	"github.com/far4599/ytdl-jobs/internal/repository"
	"github.com/far4599/ytdl-jobs/internal/service"
	"golang.org/x/sync/errgroup"
	"gopkg.in/tucnak/telebot.v3"
)

// offersSize bounds how many menu choices stay clickable.
const offersSize = 1_000

type Bot struct {
	conf *config.Config

	vs *service.VideoService
	js *service.JobService
}

func NewApp(conf *config.Config, vs *service.VideoService, js *service.JobService) *Bot {
	return &Bot{
		conf: conf,
		vs:   vs,
		js:   js,
	}
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	offers, err := repository.NewInMemRepository(offersSize)
	if err != nil {
		return err
	}

	botClient, err := telegram.NewBotClient(b.conf.Telegram.Bot.Token)
	if err != nil {
		return err
	}

	errGroup, errCtx := errgroup.WithContext(ctx)

	var uploader service.Uploader
	if telegram.Enabled(b.conf) {
		userbot := telegram.NewUserBotClient(b.conf)
		uploader = userbot

		errGroup.Go(func() error {
			return userbot.Run(errCtx)
		})
	} else {
		log.Logger.Info("telegram app credentials are not set, files go through the bot api")
	}

	b.setMessageHandlers(botClient, service.NewMessageHandler(b.vs, b.js, offers), uploader)

	errGroup.Go(func() error {
		log.Logger.Info("telegram bot started")
		botClient.Run(errCtx)
		log.Logger.Info("telegram bot stopped")
		return nil
	})

	return errGroup.Wait()
}

func (b *Bot) setMessageHandlers(botClient *telegram.BotClient, tmh *service.TelegramMessageHandler, uploader service.Uploader) {
	bot := botClient.Bot()

	bot.Handle("/start", tmh.OnStart())
	bot.Handle(telebot.OnText, tmh.OnNewMessage())
	bot.Handle(telebot.OnCallback, tmh.OnCallback(uploader))
}
