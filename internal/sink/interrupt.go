package sink

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// InterruptHandler implements spec.md §4.J's interrupt policy: the first
// N signals (configurable, default 3) are ignored and logged to the
// diagnostic channel; the (N+1)th terminates. Follow mode always
// terminates on the first signal.
type InterruptHandler struct {
	ignoreCount int32
	seen        int32
	stop        int32 // atomic boolean, polled at every queue-receive (spec.md §5)
	ch          chan os.Signal
	onIgnored   func(count int)
}

// NewInterruptHandler installs a SIGINT/SIGTERM handler. ignoreCount is
// clamped to 0 for follow mode (spec.md: "follow mode always terminates
// on the first signal").
func NewInterruptHandler(ignoreCount int, followMode bool, onIgnored func(count int)) *InterruptHandler {
	if followMode {
		ignoreCount = 0
	}
	h := &InterruptHandler{
		ignoreCount: int32(ignoreCount),
		ch:          make(chan os.Signal, 1),
		onIgnored:   onIgnored,
	}
	signal.Notify(h.ch, os.Interrupt, syscall.SIGTERM)
	go h.loop()
	return h
}

func (h *InterruptHandler) loop() {
	for range h.ch {
		n := atomic.AddInt32(&h.seen, 1)
		if n <= h.ignoreCount {
			if h.onIgnored != nil {
				h.onIgnored(int(n))
			}
			continue
		}
		atomic.StoreInt32(&h.stop, 1)
	}
}

// Stopped reports the cancellation flag every worker and stage polls at
// queue-receive points (spec.md §5).
func (h *InterruptHandler) Stopped() bool {
	return atomic.LoadInt32(&h.stop) == 1
}

// Close stops listening for signals.
func (h *InterruptHandler) Close() {
	signal.Stop(h.ch)
	close(h.ch)
}
