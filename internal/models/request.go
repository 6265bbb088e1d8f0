package models

const (
	QualityBest  = "best"
	QualityWorst = "worst"

	DefaultFormat = "mp4"
)

type DownloadRequest struct {
	URL              string
	Quality          string
	Format           string
	AudioOnly        bool
	IncludeSubtitles bool
}

// WithDefaults fills the options a caller left empty.
func (r DownloadRequest) WithDefaults() DownloadRequest {
	if r.Quality == "" {
		r.Quality = QualityBest
	}
	if r.Format == "" {
		r.Format = DefaultFormat
	}

	return r
}

type PostProcessor struct {
	Key              string
	PreferredCodec   string
	PreferredQuality string
}

type SubtitlePolicy struct {
	Languages []string
	Automatic bool
	Embed     bool
}

// FormatPolicy is the fetch-engine facing form of a request's options.
// MergeFormat is empty for audio-only policies.
type FormatPolicy struct {
	Selector       string
	PostProcessors []PostProcessor
	MergeFormat    string
	Subtitles      *SubtitlePolicy
	EmbedChapters  bool
}

// ExtractsAudio reports whether the engine will rewrite the output into an audio container.
func (p FormatPolicy) ExtractsAudio() (codec string, ok bool) {
	for _, pp := range p.PostProcessors {
		if pp.Key == PostProcessorExtractAudio {
			return pp.PreferredCodec, true
		}
	}

	return "", false
}

const PostProcessorExtractAudio = "FFmpegExtractAudio"
