// Package engine is the sync orchestrator. It turns user intents into
// mutations of the entity store while keeping the optional remote backend,
// the local snapshot and the stock ledger consistent.
//
// Write policy:
//
//   - With an active session and a remote backend, every intent is written
//     remotely first. A failed remote write aborts the intent with no local
//     change and returns an *Error with code REMOTE_WRITE_FAILED.
//   - Without a session (or without a backend) intents apply locally only.
//   - Every applied change is persisted to the local snapshot through a store
//     observer, then published as an event.
//
// Order creation and deletion post stock deltas through the ledger after the
// order itself is applied. Each delta is its own intent; a failure part way
// leaves earlier deltas in effect and is reported as *ledger.PartialError.
//
// Intents are not serialized against each other. Callers that issue intents
// concurrently may interleave their effects.
package engine
