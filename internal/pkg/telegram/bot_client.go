package telegram

import (
	"context"
	"time"

	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/pkg/errors"
	"gopkg.in/tucnak/telebot.v3"
)

const pollTimeout = 10 * time.Second

// BotClient receives updates from the Bot API by long polling.
type BotClient struct {
	bot *telebot.Bot
}

func NewBotClient(token string) (*BotClient, error) {
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, _ telebot.Context) {
			log.Logger.Errorw("telegram update failed", "error", err)
		},
	}

	bot, err := telebot.NewBot(pref)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	return &BotClient{
		bot: bot,
	}, nil
}

func (c *BotClient) Bot() *telebot.Bot {
	return c.bot
}

// Run processes updates until ctx is done.
func (c *BotClient) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.bot.Stop()
	}()

	c.bot.Start()
}
