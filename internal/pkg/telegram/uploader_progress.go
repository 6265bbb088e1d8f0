package telegram

import (
	"context"
	"sync"

	"github.com/gotd/td/telegram/uploader"
	"go.uber.org/atomic"
)

// UploaderProgress turns uploader chunks into whole percent steps.
// A step is published once, later duplicates are dropped.
type UploaderProgress struct {
	percent *atomic.Int32 // 0 - 100
	changes chan int32

	closed bool
	mu     sync.Mutex
}

func NewUploaderProgress() *UploaderProgress {
	return &UploaderProgress{
		percent: atomic.NewInt32(-1),
		changes: make(chan int32, 101),
	}
}

func (up *UploaderProgress) Chunk(_ context.Context, state uploader.ProgressState) error {
	percent := Percent(state.Uploaded, state.Total)

	if up.percent.Swap(percent) == percent {
		return nil
	}

	up.mu.Lock()
	defer up.mu.Unlock()

	if up.closed {
		return nil
	}

	select {
	case up.changes <- percent:
	default:
	}

	return nil
}

func (up *UploaderProgress) ProgressChan() <-chan int32 {
	return up.changes
}

// Close ends the progress channel. Calling it twice is safe.
func (up *UploaderProgress) Close() {
	up.mu.Lock()
	defer up.mu.Unlock()

	if up.closed {
		return
	}

	up.closed = true
	close(up.changes)
}

// Percent is done/total clamped to 0..100. An unknown total reports 0.
func Percent(done, total int64) int32 {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}

	return int32(done * 100 / total)
}
