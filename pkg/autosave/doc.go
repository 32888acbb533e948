// Package autosave batches change notifications into debounced writes.
//
// Each registered resource moves through Clean, Dirty and Flushing. A Touch
// marks the resource Dirty and arms a timer; bursts of touches collapse into
// a single flush that happens at most MaxDelay after the first unsaved
// change. Failed flushes keep the resource Dirty and are retried with
// exponential backoff.
package autosave
