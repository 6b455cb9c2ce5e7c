package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/polybot/internal/ir"
)

// Handler processes one inbound message.
type Handler interface {
	HandleMessage(ctx context.Context, msg ir.Inbound) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg ir.Inbound) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, msg ir.Inbound) error {
	return f(ctx, msg)
}

// RequestIDGenerator generates request ids for log correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RequestIDGenerator interface {
	Generate() string
}

// Engine is the single-writer dispatch loop.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	handler Handler
	queue   *eventQueue
	ids     RequestIDGenerator
	now     func() time.Time

	// onError observes every dispatch failure after it is logged.
	onError func(error)
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithNow overrides the wall clock used to stamp received messages.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithErrorHook registers a callback for dispatch failures.
func WithErrorHook(fn func(error)) EngineOption {
	return func(e *Engine) {
		e.onError = fn
	}
}

// New creates an Engine that dispatches to h.
func New(h Handler, ids RequestIDGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		handler: h,
		queue:   newEventQueue(),
		ids:     ids,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Enqueue submits a message for processing by the Run loop and returns its
// request id. Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(msg ir.Inbound) (string, bool) {
	id := e.ids.Generate()
	ok := e.queue.Enqueue(Event{RequestID: id, Message: msg, Received: e.now()})
	return id, ok
}

// QueueLen returns the number of messages waiting.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the single-writer event loop.
// Blocks until context is cancelled or Stop() is called.
//
// ERROR HANDLING: a failing or panicking handler is logged with the
// message context and the loop continues with the next message.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.dispatch(ctx, event); err != nil {
				logEventError(event, err)
				if e.onError != nil {
					e.onError(err)
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if e.queue.Len() == 0 && e.closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Messages already queued are still processed before Run returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) closed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// dispatch calls the handler for one event, converting errors and panics
// into RuntimeErrors.
func (e *Engine) dispatch(ctx context.Context, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(event.RequestID, r)
		}
	}()

	ctx = WithRequestID(ctx, event.RequestID)
	slog.Debug("dispatching message",
		"request_id", event.RequestID,
		"sender", event.Message.SenderID,
		"message_id", event.Message.MessageID,
		"queued", e.now().Sub(event.Received),
	)

	if herr := e.handler.HandleMessage(ctx, event.Message); herr != nil {
		return NewHandlerError(event.RequestID, herr)
	}
	return nil
}

func logEventError(event Event, err error) {
	slog.Error("message processing failed",
		"request_id", event.RequestID,
		"sender", event.Message.SenderID,
		"chat", event.Message.ChatID,
		"message_id", event.Message.MessageID,
		"error", err,
	)
}
