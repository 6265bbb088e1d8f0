package ytdlp

import (
	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

func parseMetadata(out []byte) (*models.Metadata, error) {
	v, err := parse(out)
	if err != nil {
		return nil, err
	}

	md := &models.Metadata{
		ID:          getString(v, "id"),
		Title:       getString(v, "title"),
		Duration:    getFloat(v, "duration"),
		Uploader:    getString(v, "uploader"),
		ViewCount:   getInt(v, "view_count"),
		Thumbnail:   getString(v, "thumbnail"),
		Description: getString(v, "description"),
	}

	for _, ch := range v.GetArray("chapters") {
		raw := models.RawChapter{
			StartTime: getFloat(ch, "start_time"),
			EndTime:   getFloat(ch, "end_time"),
		}
		if t := ch.Get("title"); t != nil && t.Type() == fastjson.TypeString {
			title := string(t.GetStringBytes())
			raw.Title = &title
		}

		md.Chapters = append(md.Chapters, raw)
	}

	return md, nil
}

func parseFetchResult(out []byte) (*models.FetchResult, error) {
	v, err := parse(out)
	if err != nil {
		return nil, err
	}

	res := fetchResult(v)
	if res.OutputPath == "" {
		return nil, models.NewEngineError(models.ErrExtractionFailure, "yt-dlp did not report an output filename")
	}

	return &res, nil
}

func parsePlaylist(out []byte) (*models.PlaylistFetch, error) {
	v, err := parse(out)
	if err != nil {
		return nil, err
	}

	entries := v.GetArray("entries")

	result := &models.PlaylistFetch{
		PlaylistTitle: getString(v, "title"),
		Entries:       make([]models.FetchResult, 0, len(entries)),
	}
	for _, entry := range entries {
		result.Entries = append(result.Entries, fetchResult(entry))
	}

	return result, nil
}

func fetchResult(v *fastjson.Value) models.FetchResult {
	path := getString(v, "_filename")
	if path == "" {
		path = getString(v, "filename")
	}

	return models.FetchResult{
		OutputPath:    path,
		ResolvedTitle: getString(v, "title"),
	}
}

func parse(out []byte) (*fastjson.Value, error) {
	if len(out) == 0 {
		return nil, models.NewEngineError(models.ErrExtractionFailure, "yt-dlp returned no info")
	}

	v, err := new(fastjson.Parser).ParseBytes(out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse yt-dlp output")
	}

	return v, nil
}

func getString(v *fastjson.Value, key string) string {
	return string(v.GetStringBytes(key))
}

func getFloat(v *fastjson.Value, key string) *float64 {
	f := v.Get(key)
	if f == nil || f.Type() != fastjson.TypeNumber {
		return nil
	}

	n, err := f.Float64()
	if err != nil {
		return nil
	}

	return &n
}

func getInt(v *fastjson.Value, key string) *int64 {
	f := v.Get(key)
	if f == nil || f.Type() != fastjson.TypeNumber {
		return nil
	}

	n, err := f.Int64()
	if err != nil {
		return nil
	}

	return &n
}
