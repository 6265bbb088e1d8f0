package ytdlp

import (
	"strings"

	"github.com/far4599/ytdl-jobs/internal/models"
)

func policyArgs(policy models.FormatPolicy) []string {
	args := []string{"-f", policy.Selector}

	if policy.MergeFormat != "" {
		args = append(args, "--merge-output-format", policy.MergeFormat)
	}

	for _, pp := range policy.PostProcessors {
		if pp.Key != models.PostProcessorExtractAudio {
			continue
		}

		args = append(args, "-x", "--audio-format", pp.PreferredCodec)
		if pp.PreferredQuality != "" {
			args = append(args, "--audio-quality", pp.PreferredQuality+"K")
		}
	}

	if subs := policy.Subtitles; subs != nil {
		args = append(args, "--write-subs")
		if subs.Automatic {
			args = append(args, "--write-auto-subs")
		}
		if len(subs.Languages) > 0 {
			args = append(args, "--sub-langs", strings.Join(subs.Languages, ","))
		}
		if subs.Embed {
			args = append(args, "--embed-subs")
		}
	}

	if policy.EmbedChapters {
		args = append(args, "--embed-chapters")
	}

	return args
}
