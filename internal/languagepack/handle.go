package languagepack

import (
	"context"
	"sync"
	"time"
)

const (
	downloadProgressMax = 90
	verifyProgressMax   = 99
)

// DownloadHandle tracks one pack download. Wait blocks until it reaches a
// terminal status; Snapshot is safe to call at any time.
type DownloadHandle struct {
	mu        sync.Mutex
	state     LanguagePackDownload
	listeners []ProgressFunc
	companion *DownloadHandle
	err       error

	cancel context.CancelFunc
	done   chan struct{}
}

func newDownloadHandle(id, packID string, cancel context.CancelFunc, onProgress ProgressFunc) *DownloadHandle {
	h := &DownloadHandle{
		state: LanguagePackDownload{
			ID:        id,
			PackID:    packID,
			Status:    StatusPending,
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if onProgress != nil {
		h.listeners = append(h.listeners, onProgress)
	}
	return h
}

func (h *DownloadHandle) ID() string {
	return h.state.ID
}

func (h *DownloadHandle) PackID() string {
	return h.state.PackID
}

func (h *DownloadHandle) Snapshot() LanguagePackDownload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed once the download is terminal.
func (h *DownloadHandle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the download is terminal or ctx is done.
func (h *DownloadHandle) Wait(ctx context.Context) (LanguagePackDownload, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.state, h.err
	case <-ctx.Done():
		return h.Snapshot(), ctx.Err()
	}
}

// Err returns the terminal error, if any.
func (h *DownloadHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Companion returns the handle of the companion download started when this
// one completed, or nil.
func (h *DownloadHandle) Companion() *DownloadHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.companion
}

func (h *DownloadHandle) subscribe(fn ProgressFunc) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func (h *DownloadHandle) progressListeners() []ProgressFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ProgressFunc(nil), h.listeners...)
}

func (h *DownloadHandle) setCompanion(companion *DownloadHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.companion = companion
}

// update applies fn to the state, keeps progress from going backwards while
// not terminal, and notifies listeners outside the lock.
func (h *DownloadHandle) update(fn func(state *LanguagePackDownload)) {
	h.mu.Lock()
	if h.state.Status.IsTerminal() {
		h.mu.Unlock()
		return
	}
	previous := h.state.Progress
	fn(&h.state)
	if h.state.Progress < previous {
		h.state.Progress = previous
	}
	snapshot := h.state
	listeners := append([]ProgressFunc(nil), h.listeners...)
	h.mu.Unlock()

	for _, listener := range listeners {
		listener(snapshot)
	}
}

func (h *DownloadHandle) setStatus(status DownloadStatus, progress int) {
	h.update(func(state *LanguagePackDownload) {
		state.Status = status
		state.Progress = progress
	})
}

func (h *DownloadHandle) setBytes(downloaded, total int64) {
	h.update(func(state *LanguagePackDownload) {
		state.DownloadedBytes = downloaded
		if total > 0 {
			state.TotalBytes = total
		}
		if state.TotalBytes > 0 {
			progress := int(downloaded * downloadProgressMax / state.TotalBytes)
			state.Progress = min(progress, downloadProgressMax)
		}
	})
}

func (h *DownloadHandle) incrementRetry() {
	h.update(func(state *LanguagePackDownload) {
		state.RetryCount++
	})
}

// finish moves the download to a terminal status and records err.
func (h *DownloadHandle) finish(status DownloadStatus, err error) {
	h.update(func(state *LanguagePackDownload) {
		state.Status = status
		if status == StatusCompleted {
			state.Progress = 100
		}
		if err != nil {
			state.Error = err.Error()
		}
	})
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}
