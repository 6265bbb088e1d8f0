package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/far4599/ytdl-jobs/internal/pkg/telegram"
	"github.com/far4599/ytdl-jobs/internal/repository"
	"github.com/google/uuid"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"github.com/pkg/errors"
	"gopkg.in/tucnak/telebot.v3"
)

const (
	videoEmoji = "🎥"
	audioEmoji = "🎧"

	probeTimeout    = 60 * time.Second
	deliveryTimeout = 1 * time.Hour
	pollInterval    = time.Second
	editInterval    = 2 * time.Second
)

// Preset is one download choice in the inline menu.
type Preset struct {
	Label     string
	Quality   string
	Format    string
	AudioOnly bool
}

var Presets = []Preset{
	{Label: "best", Quality: models.QualityBest, Format: models.DefaultFormat},
	{Label: "720p", Quality: "720p", Format: models.DefaultFormat},
	{Label: "480p", Quality: "480p", Format: models.DefaultFormat},
	{Label: "mp3", Quality: models.QualityBest, Format: models.DefaultFormat, AudioOnly: true},
}

func (p Preset) Request(url string) models.DownloadRequest {
	return models.DownloadRequest{
		URL:       url,
		Quality:   p.Quality,
		Format:    p.Format,
		AudioOnly: p.AudioOnly,
	}
}

type offer struct {
	ID     string
	URL    string
	Title  string
	Preset Preset
}

// Uploader delivers a finished file to a chat and reports progress while doing so.
type Uploader interface {
	UploadFile(ctx context.Context, to tg.InputPeerClass, title, filePath string, audio bool, progress uploader.Progress) error
}

type TelegramMessageHandler struct {
	vs     *VideoService
	js     *JobService
	offers *repository.InMemRepository
}

func NewMessageHandler(vs *VideoService, js *JobService, offers *repository.InMemRepository) *TelegramMessageHandler {
	return &TelegramMessageHandler{
		vs:     vs,
		js:     js,
		offers: offers,
	}
}

func (h *TelegramMessageHandler) OnStart() telebot.HandlerFunc {
	return func(m telebot.Context) error {
		return m.Send("Send me a link to a video and pick a format.")
	}
}

func (h *TelegramMessageHandler) OnNewMessage() telebot.HandlerFunc {
	return func(m telebot.Context) (err error) {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		tmpMsg, err := m.Bot().Send(m.Sender(), "gathering info")
		if err != nil {
			return err
		}
		defer func() {
			if err != nil {
				defer m.Bot().Send(m.Sender(), fmt.Sprintf("error: '%s'", err))
			}

			m.Bot().Delete(tmpMsg)
		}()

		m.Notify(telebot.FindingLocation)

		videoURL := strings.TrimSpace(m.Text())

		videoInfo, err := h.vs.GetVideoInfo(ctx, videoURL)
		if IsInvalidRequest(err) {
			return errors.Wrap(err, "send me a link to a video")
		}
		if err != nil {
			return err
		}

		msg, opts := createVideoInfoMessage(videoInfo, h.newOffers(videoURL, videoInfo))
		_, err = m.Bot().Send(m.Sender(), msg, opts...)

		return err
	}
}

// OnCallback runs the chosen preset as a job and sends the file back.
// The userbot is optional; without it the file goes through the Bot API.
func (h *TelegramMessageHandler) OnCallback(userbot Uploader) telebot.HandlerFunc {
	return func(m telebot.Context) (err error) {
		defer func() {
			if err != nil {
				log.Logger.Errorw("telegram delivery failed", "error", err)
				m.Bot().Send(m.Sender(), fmt.Sprintf("error: '%s'", err))
			}
		}()

		defer m.Respond()

		o, ok := h.lookupOffer(m.Callback().Data)
		if !ok {
			return errors.New("this option has expired, send the link again")
		}

		id, err := h.js.StartDownload(o.Preset.Request(o.URL))
		if err != nil {
			return err
		}

		status, err := m.Bot().Send(m.Sender(), fmt.Sprintf("downloading %s (%s)", o.Title, o.Preset.Label))
		if err != nil {
			return err
		}
		defer m.Bot().Delete(status)

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		rec, err := h.js.WaitForJob(ctx, id, pollInterval)
		if err != nil {
			return err
		}
		if rec.State == models.JobStateFailed {
			return errors.New(rec.Error)
		}

		res := rec.Result
		m.Bot().Edit(status, fmt.Sprintf("uploading %s (%s)", res.Filename, humanize.Bytes(uint64(res.Size))))

		if userbot != nil {
			return h.uploadWithProgress(ctx, m, status, userbot, o, res)
		}

		_, err = m.Bot().Send(m.Sender(), &telebot.Document{
			File:     telebot.FromDisk(res.FilePath),
			FileName: res.Filename,
			Caption:  o.Title,
		})

		return err
	}
}

func (h *TelegramMessageHandler) uploadWithProgress(ctx context.Context, m telebot.Context, status *telebot.Message, userbot Uploader, o *offer, res *models.JobResult) error {
	progress := telegram.NewUploaderProgress()

	done := make(chan struct{})
	go func() {
		defer close(done)

		var last time.Time
		for p := range progress.ProgressChan() {
			if p < 100 && time.Since(last) < editInterval {
				continue
			}
			last = time.Now()

			m.Bot().Edit(status, fmt.Sprintf("uploading %s: %d%%", res.Filename, p))
		}
	}()

	err := userbot.UploadFile(ctx, &tg.InputPeerUser{UserID: m.Sender().ID}, o.Title, res.FilePath, o.Preset.AudioOnly, progress)
	progress.Close()
	<-done

	return err
}

func (h *TelegramMessageHandler) newOffers(url string, info *models.VideoInfo) []*offer {
	offers := make([]*offer, 0, len(Presets))
	for _, p := range Presets {
		o := &offer{
			ID:     uuid.New().String(),
			URL:    url,
			Title:  info.Title,
			Preset: p,
		}
		h.offers.Add(o.ID, o)

		offers = append(offers, o)
	}

	return offers
}

// lookupOffer accepts raw callback data, which telebot prefixes with a form feed.
func (h *TelegramMessageHandler) lookupOffer(data string) (*offer, bool) {
	v, ok := h.offers.Get(strings.TrimSpace(data))
	if !ok {
		return nil, false
	}

	o, ok := v.(*offer)

	return o, ok
}

func createVideoInfoMessage(info *models.VideoInfo, offers []*offer) (msg any, options []any) {
	caption := videoCaption(info)

	if len(info.ThumbURL) > 0 {
		msg = &telebot.Photo{
			File: telebot.File{
				FileURL: info.ThumbURL,
			},
			Caption: caption,
		}
	} else {
		msg = caption
	}

	if len(offers) > 0 {
		inlineMenu := &telebot.ReplyMarkup{}

		rows := make([]telebot.Row, 0, len(offers))
		for _, o := range offers {
			emoji := videoEmoji
			if o.Preset.AudioOnly {
				emoji = audioEmoji
			}

			rows = append(rows, inlineMenu.Row(inlineMenu.Data(emoji+" "+o.Preset.Label, o.ID)))
		}

		inlineMenu.Inline(rows...)

		options = append(options, inlineMenu)
	}

	return
}

func videoCaption(info *models.VideoInfo) string {
	lines := []string{info.Title}

	var details []string
	if info.Uploader != "" {
		details = append(details, info.Uploader)
	}
	if info.Duration != nil {
		details = append(details, (time.Duration(*info.Duration) * time.Second).String())
	}
	if info.ViewCount != nil {
		details = append(details, humanize.Comma(*info.ViewCount)+" views")
	}
	if info.ChapterCount > 0 {
		details = append(details, fmt.Sprintf("%d chapters", info.ChapterCount))
	}
	if len(details) > 0 {
		lines = append(lines, strings.Join(details, " · "))
	}

	return strings.Join(lines, "\n")
}
