package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/far4599/ytdl-jobs/internal/models"
	"github.com/far4599/ytdl-jobs/internal/pkg/log"
	"github.com/pkg/errors"
)

const (
	DefaultBinary   = "yt-dlp"
	DefaultCacheDir = "/tmp/yt-dlp"

	errorPrefix = "ERROR: "
)

type Options struct {
	Binary   string
	CacheDir string
}

// Client drives the yt-dlp executable. Every call starts a new process, so a Client
// is safe for concurrent use.
type Client struct {
	binary   string
	cacheDir string
}

func NewClient(opts Options) *Client {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.CacheDir == "" {
		opts.CacheDir = DefaultCacheDir
	}

	return &Client{
		binary:   opts.Binary,
		cacheDir: opts.CacheDir,
	}
}

// Probe reads metadata without downloading anything.
func (c *Client) Probe(ctx context.Context, url string) (*models.Metadata, error) {
	out, err := c.run(ctx, url, "-J", "--skip-download")
	if err != nil {
		return nil, err
	}

	return parseMetadata(out)
}

// Fetch downloads a single item and reports the path predicted by the output template.
func (c *Client) Fetch(ctx context.Context, url string, policy models.FormatPolicy, outputTemplate string) (*models.FetchResult, error) {
	args := append(policyArgs(policy), "-o", outputTemplate, "--no-playlist")

	out, err := c.run(ctx, url, append(args, downloadArgs...)...)
	if err != nil {
		return nil, err
	}

	return parseFetchResult(out)
}

// FetchPlaylist downloads every entry of a playlist. The first failing entry aborts the run.
func (c *Client) FetchPlaylist(ctx context.Context, url string, policy models.FormatPolicy, outputTemplate string) (*models.PlaylistFetch, error) {
	args := append(policyArgs(policy), "-o", outputTemplate, "--yes-playlist")

	out, err := c.run(ctx, url, append(args, downloadArgs...)...)
	if err != nil {
		return nil, err
	}

	return parsePlaylist(out)
}

// downloadArgs make yt-dlp download and still print the final info json on stdout.
var downloadArgs = []string{
	"-J",
	"--no-simulate",
	"--no-progress",
	"--abort-on-error",
}

func (c *Client) run(ctx context.Context, url string, args ...string) ([]byte, error) {
	defaultArgs := []string{
		"--no-warnings",
		"--cache-dir", c.cacheDir,
		// provide URL via stdin, so it can never be parsed as an option
		"--batch-file", "-",
	}

	cmd := exec.CommandContext(ctx, c.binary, append(defaultArgs, args...)...)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd.Stdin = bytes.NewBufferString(url + "\n")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	engineMsg := lastErrorLine(stderr)
	if runErr == nil && engineMsg == "" {
		return stdout.Bytes(), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.Wrap(ctxErr, "yt-dlp interrupted")
	}

	if engineMsg == "" {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			engineMsg = strings.TrimSpace(stderr.String())
		}
		if engineMsg == "" {
			engineMsg = runErr.Error()
		}
	}

	log.Logger.Debugw("yt-dlp returned error", "url", url, "error", engineMsg)

	return nil, models.NewEngineError(classify(engineMsg), engineMsg)
}

func lastErrorLine(stderr *bytes.Buffer) string {
	var msg string

	scanner := bufio.NewScanner(bytes.NewReader(stderr.Bytes()))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, errorPrefix) {
			msg = line[len(errorPrefix):]
		}
	}

	return msg
}

var encodingMarkers = []string{"postprocessing", "ffmpeg", "ffprobe", "conversion failed"}

// classify tells post-processing failures apart from everything that happened while
// resolving or transferring the source.
func classify(msg string) error {
	lower := strings.ToLower(msg)
	for _, marker := range encodingMarkers {
		if strings.Contains(lower, marker) {
			return models.ErrEncodingFailure
		}
	}

	return models.ErrExtractionFailure
}
