package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"silkstaff/internal/config"
	"silkstaff/internal/fileutil"
	"silkstaff/internal/logging"
	"silkstaff/internal/services"
)

const (
	tusVersion       = "1.0.0"
	offsetOctetMedia = "application/offset+octet-stream"
	maxErrorBody     = 1024
)

// HTTPDoer describes the HTTP client used for tus requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResumeStore remembers upload URLs between attempts and runs.
type ResumeStore interface {
	Lookup(ctx context.Context, fingerprint string) (string, bool, error)
	Save(ctx context.Context, entry Entry) error
	Remove(ctx context.Context, fingerprint string) error
}

// Result identifies an uploaded file.
type Result struct {
	// Name is the last path segment of the tus upload URL.
	Name string
	// URL is the public address under the static file endpoint.
	URL  string
	Size int64
}

// StatusError reports an unexpected tus response.
type StatusError struct {
	Method string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("tus %s returned %d", e.Method, e.Code)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

func (e *StatusError) Unwrap() error { return services.MarkerForStatus(e.Code) }

// retryable reports whether a failed request is worth repeating. 409 and 423
// signal an offset conflict or a locked upload, which clear up on retry.
func (e *StatusError) retryable() bool {
	switch {
	case e.Code == http.StatusConflict || e.Code == http.StatusLocked:
		return true
	case e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout:
		return true
	case e.Code >= 400 && e.Code < 500:
		return false
	default:
		return true
	}
}

// Options configures a Client.
type Options struct {
	Endpoint      string
	StaticURL     string
	Authorization string
	ChunkSize     int64
	RetryDelays   []time.Duration
	HTTPClient    HTTPDoer
	Store         ResumeStore
	Logger        *slog.Logger
	// Progress draws a byte progress bar on stderr when it is a terminal.
	Progress bool
}

// Client uploads files to one tus endpoint.
type Client struct {
	endpoint  string
	staticURL string
	auth      string
	chunkSize int64
	delays    []time.Duration
	http      HTTPDoer
	store     ResumeStore
	logger    *slog.Logger
	progress  bool
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	c := &Client{
		endpoint:  strings.TrimSpace(opts.Endpoint),
		staticURL: strings.TrimRight(strings.TrimSpace(opts.StaticURL), "/"),
		auth:      strings.TrimSpace(opts.Authorization),
		chunkSize: opts.ChunkSize,
		delays:    opts.RetryDelays,
		http:      opts.HTTPClient,
		store:     opts.Store,
		logger:    logging.NewComponentLogger(opts.Logger, "upload"),
		progress:  opts.Progress && isatty.IsTerminal(os.Stderr.Fd()),
	}
	if c.chunkSize <= 0 {
		c.chunkSize = 64 * 1024 * 1024
	}
	if c.delays == nil {
		c.delays = DefaultRetryDelays
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// NewClientFromConfig builds a Client from the [upload] and [api] sections.
func NewClientFromConfig(cfg *config.Config, store ResumeStore, logger *slog.Logger) *Client {
	return NewClient(Options{
		Endpoint:      cfg.Upload.Endpoint,
		StaticURL:     cfg.Upload.StaticURL,
		Authorization: cfg.API.AuthorizationHeader(),
		ChunkSize:     cfg.Upload.ChunkSize(),
		RetryDelays:   cfg.Upload.RetrySchedule(),
		Store:         store,
		Logger:        logger,
		Progress:      cfg.Upload.Progress,
	})
}

type fileInfo struct {
	path        string
	size        int64
	remoteName  string
	mimeType    string
	fingerprint string
}

// Upload transfers localPath and names it "<displayName>.<ext>" on the server.
// Failed transfers are retried on the configured delay schedule, resuming
// from the server offset each time.
func (c *Client) Upload(ctx context.Context, localPath, displayName string) (Result, error) {
	if c.endpoint == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "upload", "prepare", "upload endpoint is not configured", nil)
	}
	info, err := c.describe(localPath, displayName)
	if err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("upload started",
		logging.String("file", info.path),
		logging.String("remote_name", info.remoteName),
		logging.String("size", humanize.Bytes(uint64(info.size))),
		logging.String("mime", info.mimeType),
	)

	var uploadURL string
	attempt := 0
	op := func() error {
		attempt++
		var opErr error
		uploadURL, opErr = c.transfer(ctx, info)
		if opErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		var statusErr *StatusError
		if errors.As(opErr, &statusErr) && !statusErr.retryable() {
			return backoff.Permanent(opErr)
		}
		return opErr
	}
	notify := func(err error, wait time.Duration) {
		logging.WarnWithContext(logger, "upload attempt failed; retrying", "upload_retry",
			logging.String("file", info.remoteName),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Error(err),
			logging.String(logging.FieldImpact, "transfer resumes from the server offset"),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(newScheduleBackOff(c.delays), ctx), notify); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("upload %s: %w", info.remoteName, err)
	}

	if c.store != nil {
		if err := c.store.Remove(ctx, info.fingerprint); err != nil {
			logging.WarnWithContext(logger, "could not forget finished upload", "upload_store_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a stale resume entry stays in the upload store"),
			)
		}
	}

	name := path.Base(strings.TrimRight(mustPath(uploadURL), "/"))
	if name == "" || name == "." || name == "/" {
		return Result{}, services.Wrap(services.ErrExternal, "upload", "finish", "server returned upload url without a name: "+uploadURL, nil)
	}
	result := Result{Name: name, URL: c.staticURL + "/" + name, Size: info.size}
	logger.Info("file uploaded",
		logging.String("file", info.remoteName),
		logging.String("size", humanize.Bytes(uint64(info.size))),
		logging.String("url", result.URL),
		logging.String(logging.FieldEventType, "file_uploaded"),
	)
	return result, nil
}

func (c *Client) describe(localPath, displayName string) (fileInfo, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return fileInfo{}, fmt.Errorf("resolve %s: %w", localPath, err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return fileInfo{}, services.Wrap(services.ErrNotFound, "upload", "stat", abs, err)
	}
	if stat.IsDir() {
		return fileInfo{}, services.Wrap(services.ErrValidation, "upload", "stat", abs+" is a directory", nil)
	}

	mimeType := "application/octet-stream"
	ext := strings.TrimPrefix(filepath.Ext(abs), ".")
	if detected, err := mimetype.DetectFile(abs); err == nil {
		mimeType, _, _ = strings.Cut(detected.String(), ";")
		if ext == "" {
			ext = strings.TrimPrefix(detected.Extension(), ".")
		}
	}
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}
	remote := name
	if ext != "" {
		remote = name + "." + ext
	}

	return fileInfo{
		path:        abs,
		size:        stat.Size(),
		remoteName:  remote,
		mimeType:    mimeType,
		fingerprint: fileutil.Fingerprint(abs, strconv.FormatInt(stat.Size(), 10), stat.ModTime().UTC().Format(time.RFC3339Nano), c.endpoint),
	}, nil
}

// transfer runs one attempt: reuse or create the upload, then PATCH chunks
// from the current server offset. It returns the upload URL.
func (c *Client) transfer(ctx context.Context, info fileInfo) (string, error) {
	uploadURL, offset, err := c.resumeOrCreate(ctx, info)
	if err != nil {
		return "", err
	}
	if offset >= info.size {
		return uploadURL, nil
	}

	file, err := os.Open(info.path)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("open %s: %w", info.path, err))
	}
	defer file.Close()

	var bar *progressbar.ProgressBar
	if c.progress {
		bar = progressbar.DefaultBytes(info.size, info.remoteName)
		_ = bar.Set64(offset)
		defer func() { _ = bar.Finish() }()
	}

	for offset < info.size {
		n := min(c.chunkSize, info.size-offset)
		next, err := c.patch(ctx, uploadURL, offset, io.NewSectionReader(file, offset, n), n)
		if err != nil {
			return "", err
		}
		if next <= offset {
			return "", services.Wrap(services.ErrExternal, "upload", "patch", fmt.Sprintf("server offset did not advance past %d", offset), nil)
		}
		if bar != nil {
			_ = bar.Add64(next - offset)
		}
		offset = next
	}
	return uploadURL, nil
}

func (c *Client) resumeOrCreate(ctx context.Context, info fileInfo) (string, int64, error) {
	if c.store != nil {
		stored, ok, err := c.store.Lookup(ctx, info.fingerprint)
		if err != nil {
			return "", 0, backoff.Permanent(err)
		}
		if ok {
			offset, err := c.head(ctx, stored)
			if err == nil {
				c.logger.Debug("resuming upload", logging.String("file", info.remoteName), logging.Int64("offset", offset))
				return stored, offset, nil
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.retryable() {
				return "", 0, err
			}
			// The server forgot the upload; start a new one.
			if err := c.store.Remove(ctx, info.fingerprint); err != nil {
				return "", 0, backoff.Permanent(err)
			}
		}
	}

	uploadURL, err := c.create(ctx, info)
	if err != nil {
		return "", 0, err
	}
	if c.store != nil {
		if err := c.store.Save(ctx, Entry{Fingerprint: info.fingerprint, UploadURL: uploadURL, LocalPath: info.path, Size: info.size}); err != nil {
			return "", 0, backoff.Permanent(err)
		}
	}
	return uploadURL, 0, nil
}

func (c *Client) create(ctx context.Context, info fileInfo) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Upload-Length", strconv.FormatInt(info.size, 10))
	req.Header.Set("Upload-Metadata", EncodeMetadata(
		[2]string{"name", encodeURIComponent(info.remoteName)},
		[2]string{"filename", info.remoteName},
		[2]string{"filetype", info.mimeType},
	))

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", statusError(req.Method, resp)
	}
	location := strings.TrimSpace(resp.Header.Get("Location"))
	if location == "" {
		return "", backoff.Permanent(services.Wrap(services.ErrExternal, "upload", "create", "server did not return a Location header", nil))
	}
	base, err := url.Parse(c.endpoint)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("parse endpoint: %w", err))
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("parse upload location %q: %w", location, err))
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Client) head(ctx context.Context, uploadURL string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodHead, uploadURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer drain(resp)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return 0, statusError(req.Method, resp)
	}
	return parseOffset(resp)
}

func (c *Client) patch(ctx context.Context, uploadURL string, offset int64, body io.Reader, length int64) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodPatch, uploadURL, body)
	if err != nil {
		return 0, err
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", offsetOctetMedia)
	req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))

	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return 0, statusError(req.Method, resp)
	}
	return parseOffset(resp)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build tus %s request: %w", method, err))
	}
	req.Header.Set("Tus-Resumable", tusVersion)
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "upload", "tus "+req.Method, req.URL.Host, err)
	}
	return resp, nil
}

func parseOffset(resp *http.Response) (int64, error) {
	raw := strings.TrimSpace(resp.Header.Get("Upload-Offset"))
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || offset < 0 {
		return 0, services.Wrap(services.ErrExternal, "upload", "parse offset", fmt.Sprintf("invalid Upload-Offset %q", raw), err)
	}
	return offset, nil
}

func statusError(method string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Method: method, Code: resp.StatusCode, Body: string(body)}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

func mustPath(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	return raw
}

// EncodeMetadata renders the Upload-Metadata header: comma separated
// "key base64(value)" pairs.
func EncodeMetadata(pairs ...[2]string) string {
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts = append(parts, pair[0]+" "+base64.StdEncoding.EncodeToString([]byte(pair[1])))
	}
	return strings.Join(parts, ",")
}

// encodeURIComponent percent-encodes s the way browsers encode URI components.
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []string{"!", "'", "(", ")", "*"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(keep), keep)
	}
	return escaped
}
