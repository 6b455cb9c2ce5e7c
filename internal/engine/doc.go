// Package engine implements the single-writer dispatch loop for inbound
// messages.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Webhook handlers enqueue messages from any goroutine. Engine.Run()
// dequeues them one at a time and hands each to the Handler, so the
// session cache and the pixel kernels are only ever touched by one
// goroutine. This ensures:
// - Messages from one sender are handled in arrival order
// - Pairing two images never races with the timeout sweep
// - Simple reasoning about each request
//
// Event Processing Flow:
// 1. Enqueue() stamps the message with a request id and appends it to a FIFO queue
// 2. Run() dequeues events one at a time
// 3. dispatch() calls the Handler with the request id in the context
// 4. Handler errors and panics are logged and the loop moves on
//
// The engine is designed for correctness, not throughput.
package engine
