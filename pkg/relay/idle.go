package relay

import (
	"context"
	"io"
	"sync/atomic"
	"time"
)

// idleReader cancels the upstream request when a single Read blocks longer
// than timeout. Time spent writing to the client does not count.
type idleReader struct {
	r        io.Reader
	timeout  time.Duration
	timer    *time.Timer
	timedOut atomic.Bool
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *idleReader {
	ir := &idleReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, func() {
		ir.timedOut.Store(true)
		cancel()
	})
	ir.timer.Stop()
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	ir.timer.Reset(ir.timeout)
	n, err := ir.r.Read(p)
	ir.timer.Stop()
	return n, err
}

// TimedOut reports whether the watchdog fired.
func (ir *idleReader) TimedOut() bool { return ir.timedOut.Load() }

// Stop disarms the watchdog.
func (ir *idleReader) Stop() { ir.timer.Stop() }
