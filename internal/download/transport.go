package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-resty/resty/v2"
)

// Transport streams a remote asset starting at a byte offset.
type Transport interface {
	Fetch(ctx context.Context, rawURL string, offset int64) (*Body, error)
}

// Body is a streamed asset. Offset is the position the stream actually starts
// at, which is 0 when the source ignored the requested offset. Total is the
// size of the whole asset, or -1 when unknown.
type Body struct {
	io.ReadCloser
	Offset int64
	Total  int64
}

// StatusError is returned for a non-success HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
}

// HTTPTransport fetches http(s) URLs with resty and serves file:// URLs and
// plain paths from the local filesystem.
type HTTPTransport struct {
	client *resty.Client
}

func NewHTTPTransport(client *resty.Client) *HTTPTransport {
	if client == nil {
		client = resty.New()
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Fetch(ctx context.Context, rawURL string, offset int64) (*Body, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("url.Parse(%s) > %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return t.fetchHTTP(ctx, rawURL, offset)
	case "file":
		return fetchFile(u.Path, offset)
	case "":
		return fetchFile(rawURL, offset)
	default:
		if filepath.VolumeName(rawURL) != "" {
			return fetchFile(rawURL, offset)
		}
		return nil, fmt.Errorf("download %s: unsupported scheme %q", rawURL, u.Scheme)
	}
}

func (t *HTTPTransport) fetchHTTP(ctx context.Context, rawURL string, offset int64) (*Body, error) {
	req := t.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if offset > 0 {
		req.SetHeader("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	res, err := req.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client.Get(%s) > %w", rawURL, err)
	}
	raw := res.RawBody()

	switch res.StatusCode() {
	case http.StatusOK:
		return &Body{ReadCloser: raw, Offset: 0, Total: contentLength(res)}, nil
	case http.StatusPartialContent:
		start, total, ok := parseContentRange(res.Header().Get("Content-Range"))
		if !ok {
			_ = raw.Close()
			return nil, fmt.Errorf("download %s: invalid Content-Range %q", rawURL, res.Header().Get("Content-Range"))
		}
		return &Body{ReadCloser: raw, Offset: start, Total: total}, nil
	default:
		if raw != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(raw, 4096))
			_ = raw.Close()
		}
		return nil, &StatusError{URL: rawURL, StatusCode: res.StatusCode()}
	}
}

func contentLength(res *resty.Response) int64 {
	if res.RawResponse != nil && res.RawResponse.ContentLength >= 0 {
		return res.RawResponse.ContentLength
	}
	return -1
}

// parseContentRange parses "bytes <start>-<end>/<total>"; total may be "*".
func parseContentRange(value string) (start int64, total int64, ok bool) {
	value, found := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !found {
		return 0, 0, false
	}
	byteRange, size, found := strings.Cut(value, "/")
	if !found {
		return 0, 0, false
	}
	first, _, found := strings.Cut(byteRange, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if size == "*" {
		return start, -1, true
	}
	total, err = strconv.ParseInt(size, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, total, true
}

func fetchFile(path string, offset int64) (*Body, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("file.Stat(%s) > %w", path, err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("file.Seek(%s) > %w", path, err)
	}
	return &Body{ReadCloser: file, Offset: offset, Total: info.Size()}, nil
}

// IsTransient reports whether err is worth retrying: network failures,
// truncated bodies, and 408, 429 or 5xx responses. Cancellation and local
// filesystem errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "unexpected EOF")
}
