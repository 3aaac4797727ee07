package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = "0123456789abcdefghijklmnopqrstuvwxyz"

func TestHTTPTransport_Fetch(t *testing.T) {
	tests := []struct {
		name        string
		honourRange bool
		offset      int64
		wantOffset  int64
		wantTotal   int64
		wantBody    string
	}{
		{name: "full body", honourRange: true, offset: 0, wantOffset: 0, wantTotal: int64(len(payload)), wantBody: payload},
		{name: "range honoured", honourRange: true, offset: 10, wantOffset: 10, wantTotal: int64(len(payload)), wantBody: payload[10:]},
		{name: "range ignored", honourRange: false, offset: 10, wantOffset: 0, wantTotal: int64(len(payload)), wantBody: payload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var start int64
				if tt.honourRange {
					if _, err := fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-", &start); err == nil {
						w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(payload)-1, len(payload)))
						w.Header().Set("Content-Length", fmt.Sprint(int64(len(payload))-start))
						w.WriteHeader(http.StatusPartialContent)
						_, _ = w.Write([]byte(payload[start:]))
						return
					}
				}
				w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
				_, _ = w.Write([]byte(payload))
			}))
			defer server.Close()

			transport := NewHTTPTransport(resty.New())
			body, err := transport.Fetch(context.Background(), server.URL+"/en-es.sqlite.zip", tt.offset)
			require.NoError(t, err)
			defer body.Close()

			got, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(got))
			assert.Equal(t, tt.wantOffset, body.Offset)
			assert.Equal(t, tt.wantTotal, body.Total)
		})
	}
}

func TestHTTPTransport_Fetch_StatusError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{name: "not found", status: http.StatusNotFound, wantTransient: false},
		{name: "forbidden", status: http.StatusForbidden, wantTransient: false},
		{name: "server error", status: http.StatusBadGateway, wantTransient: true},
		{name: "rate limited", status: http.StatusTooManyRequests, wantTransient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTPTransport(nil).Fetch(context.Background(), server.URL, 0)
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantTransient, IsTransient(err))
		})
	}
}

func TestHTTPTransport_Fetch_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.zip")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	tests := []struct {
		name       string
		rawURL     string
		offset     int64
		wantOffset int64
		wantBody   string
	}{
		{name: "plain path", rawURL: path, wantBody: payload},
		{name: "file url with offset", rawURL: "file://" + filepath.ToSlash(path), offset: 30, wantOffset: 30, wantBody: payload[30:]},
		{name: "offset past the end restarts", rawURL: path, offset: 100, wantOffset: 0, wantBody: payload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := NewHTTPTransport(nil).Fetch(context.Background(), tt.rawURL, tt.offset)
			require.NoError(t, err)
			defer body.Close()

			got, err := io.ReadAll(body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(got))
			assert.Equal(t, tt.wantOffset, body.Offset)
			assert.Equal(t, int64(len(payload)), body.Total)
		})
	}

	_, err := NewHTTPTransport(nil).Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "unexpected eof", err: fmt.Errorf("io.Copy > %w", io.ErrUnexpectedEOF), want: true},
		{name: "cancelled", err: fmt.Errorf("client.Get > %w", context.Canceled), want: false},
		{name: "connection reset text", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "plain error", err: errors.New("checksum mismatch"), want: false},
		{name: "network operation", err: fmt.Errorf("client.Get > %w", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("broken")}), want: true},
		{name: "refused dial", err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, want: true},
		{name: "missing local asset", err: fmt.Errorf("os.Open > %w", &fs.PathError{Op: "open", Path: "/packs/en-es.zip", Err: syscall.ENOENT}), want: false},
		{name: "disk full while staging", err: fmt.Errorf("file.Write > %w", &fs.PathError{Op: "write", Path: "/staging/en-es.part", Err: syscall.ENOSPC}), want: false},
		{name: "server error", err: &StatusError{URL: "https://example.com/en-es.zip", StatusCode: http.StatusBadGateway}, want: true},
		{name: "not found", err: &StatusError{URL: "https://example.com/en-es.zip", StatusCode: http.StatusNotFound}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		value     string
		wantStart int64
		wantTotal int64
		wantOK    bool
	}{
		{value: "bytes 10-35/36", wantStart: 10, wantTotal: 36, wantOK: true},
		{value: "bytes 0-99/*", wantStart: 0, wantTotal: -1, wantOK: true},
		{value: "items 0-1/2"},
		{value: "bytes 10-35"},
		{value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			start, total, ok := parseContentRange(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantStart, start)
				assert.Equal(t, tt.wantTotal, total)
			}
		})
	}
}
