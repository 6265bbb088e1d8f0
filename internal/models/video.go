package models

// VideoInfo is the normalized result of a metadata probe.
type VideoInfo struct {
	URL          string
	Title        string
	Duration     *float64
	Uploader     string
	ViewCount    *int64
	ThumbURL     string
	Chapters     []ChapterInfo
	ChapterCount int
	Description  string
}

// Clone returns a copy that shares no slices or pointers with the receiver.
func (v *VideoInfo) Clone() *VideoInfo {
	c := *v
	if v.Duration != nil {
		d := *v.Duration
		c.Duration = &d
	}
	if v.ViewCount != nil {
		n := *v.ViewCount
		c.ViewCount = &n
	}
	if v.Chapters != nil {
		c.Chapters = append([]ChapterInfo(nil), v.Chapters...)
	}

	return &c
}

type ChapterInfo struct {
	Number    int
	Title     string
	StartTime float64
	EndTime   float64
}

// Metadata is what the fetch engine reports for a single source in metadata-only mode.
type Metadata struct {
	ID          string
	Title       string
	Duration    *float64
	Uploader    string
	ViewCount   *int64
	Thumbnail   string
	Description string
	Chapters    []RawChapter
}

// RawChapter fields are pointers because the engine may omit any of them.
type RawChapter struct {
	Title     *string
	StartTime *float64
	EndTime   *float64
}

type FetchResult struct {
	OutputPath    string
	ResolvedTitle string
}

type PlaylistFetch struct {
	PlaylistTitle string
	Entries       []FetchResult
}

type PlaylistResult struct {
	PlaylistTitle string
	VideoCount    int
}
