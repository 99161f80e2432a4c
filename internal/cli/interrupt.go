package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// InterruptHandler turns Ctrl-C into context cancellation for a long ledger
// write, such as an import, and tells the user what state the ledger is in.
type InterruptHandler struct {
	writer      io.Writer
	message     string
	once        sync.Once
	interrupted atomic.Bool
}

// NewInterruptHandler prints message to writer (stdout when nil) on interrupt.
func NewInterruptHandler(writer io.Writer, message string) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{writer: writer, message: message}
}

// HandleInterrupts derives a context that ends on SIGINT or SIGTERM. Call the
// returned stop function once the guarded work is finished.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) (context.Context, func()) {
	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	unregister := context.AfterFunc(sigCtx, func() {
		// Cancellation of the parent is not an interrupt.
		if ctx.Err() == nil {
			h.interrupt()
		}
	})
	return sigCtx, func() {
		unregister()
		stopSignals()
	}
}

func (h *InterruptHandler) interrupt() {
	h.once.Do(func() {
		h.interrupted.Store(true)
		msg := "\n\n" + FormatWarning("Interrupted!")
		if h.message != "" {
			msg += "\n" + FormatInfo(h.message)
		}
		if _, err := fmt.Fprintln(h.writer, msg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
		}
	})
}

// WasInterrupted reports whether a signal arrived.
func (h *InterruptHandler) WasInterrupted() bool {
	return h.interrupted.Load()
}
