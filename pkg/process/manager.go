// Package process provides process lifecycle utilities
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/exustash/batect/pkg/logger"
	"github.com/exustash/batect/pkg/types"
)

// InterruptHandler converts OS signals into session interruption. The first
// signal triggers the registered handlers (a controlled cancellation that
// still runs teardown); a second signal exits immediately.
type InterruptHandler struct {
	logger   logger.Logger
	handlers []func()
	sigChan  chan os.Signal
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewInterruptHandler creates a new interrupt handler
func NewInterruptHandler(log logger.Logger) *InterruptHandler {
	return &InterruptHandler{
		logger: log,
	}
}

// RegisterHandler adds an interruption handler
func (h *InterruptHandler) RegisterHandler(handler func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handlers = append(h.handlers, handler)
}

// Start begins listening for SIGINT and SIGTERM. The context bounds the
// listener's lifetime.
func (h *InterruptHandler) Start(ctx context.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.sigChan = make(chan os.Signal, 2)
	h.mu.Unlock()

	signal.Notify(h.sigChan, os.Interrupt, syscall.SIGTERM)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		select {
		case <-ctx.Done():
			return
		case sig, ok := <-h.sigChan:
			if !ok {
				return
			}
			h.logger.Info("Received signal, interrupting run", logger.WithField("signal", sig))
			h.invokeHandlers()
		}

		// A second signal means the user wants out now, before teardown
		// completes.
		select {
		case <-ctx.Done():
		case _, ok := <-h.sigChan:
			if !ok {
				return
			}
			h.logger.Warn("Received second signal, exiting without cleanup")
			os.Exit(types.ExitCodeInterrupted)
		}
	}()
}

// Stop stops listening and waits for the listener goroutine.
func (h *InterruptHandler) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	signal.Stop(h.sigChan)
	close(h.sigChan)
	h.wg.Wait()
}

func (h *InterruptHandler) invokeHandlers() {
	h.mu.Lock()
	handlers := make([]func(), len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.Unlock()

	for i := len(handlers) - 1; i >= 0; i-- {
		handlers[i]()
	}
}
