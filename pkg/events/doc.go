// Package events provides a small in-memory pub/sub broker used to carry
// the folder-import-progress event channel (§6) out to the host UI:
// Broker.Publish waits for room in the broker's 100-event queue (or
// returns once the broker is stopped), while a full subscriber buffer
// simply drops the event rather than stalling the broker.
//
// ImportProgressSink bridges pkg/importer's ProgressSink interface onto a
// Broker so callers can construct an Importer without it knowing anything
// about the broker.
package events
