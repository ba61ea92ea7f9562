// Package queue provides the FIFO buffers behind the narration pipeline.
// Items can be spliced in at the head so derived work runs before anything
// queued earlier.
package queue
