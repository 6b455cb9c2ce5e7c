// Package session correlates the two halves of a multi-image request.
//
// When a captioned photo asks for a multi-image effect and belongs to an
// album, its parsed commands are parked here keyed by sender until the
// album's next photo arrives. There is at most one session per sender.
//
// Eviction is lazy: the caller sweeps before handling each new message,
// and each session ages on its own. Claim is the only way to pair a
// follow-up photo; it checks and marks the session consumed in one step,
// so a pairing executes at most once even under redelivery.
//
// Two backends satisfy Cache: Memory (a mutex-guarded map) and SQLite (a
// private database over a single connection).
package session
