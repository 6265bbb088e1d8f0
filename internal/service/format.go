package service

import (
	"fmt"
	"strings"

	"github.com/far4599/ytdl-jobs/internal/models"
)

const (
	audioCodec   = "mp3"
	audioBitrate = "192"

	playlistFormat = "mp4"
)

var subtitleLanguages = []string{"en"}

// ResolvePolicy turns the user facing options of a request into a fetch policy.
// Quality and format strings are passed through untouched, the engine rejects bad ones.
func ResolvePolicy(req models.DownloadRequest) models.FormatPolicy {
	policy := Resolve(req.Quality, req.Format, req.AudioOnly)
	if req.IncludeSubtitles {
		policy = WithSubtitles(policy)
	}

	return policy
}

func Resolve(quality, container string, audioOnly bool) models.FormatPolicy {
	policy := models.FormatPolicy{
		EmbedChapters: true,
	}

	if audioOnly {
		policy.Selector = "bestaudio/best"
		policy.PostProcessors = []models.PostProcessor{{
			Key:              models.PostProcessorExtractAudio,
			PreferredCodec:   audioCodec,
			PreferredQuality: audioBitrate,
		}}

		return policy
	}

	switch quality {
	case models.QualityBest:
		policy.Selector = fmt.Sprintf("bestvideo[ext=%[1]s]+bestaudio[ext=m4a]/best[ext=%[1]s]/best", container)
	case models.QualityWorst:
		// container is deliberately ignored here
		policy.Selector = "worst"
	default:
		height := strings.Replace(quality, "p", "", -1)
		policy.Selector = fmt.Sprintf("bestvideo[height<=%s][ext=%s]+bestaudio/best", height, container)
	}

	policy.MergeFormat = container

	return policy
}

// WithSubtitles asks for authored and auto-generated English subtitles embedded into the output.
func WithSubtitles(policy models.FormatPolicy) models.FormatPolicy {
	policy.Subtitles = &models.SubtitlePolicy{
		Languages: append([]string(nil), subtitleLanguages...),
		Automatic: true,
		Embed:     true,
	}

	return policy
}

// PlaylistPolicy is fixed: best mp4 video with m4a audio merged into mp4.
func PlaylistPolicy() models.FormatPolicy {
	return models.FormatPolicy{
		Selector:      "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best",
		MergeFormat:   playlistFormat,
		EmbedChapters: true,
	}
}
