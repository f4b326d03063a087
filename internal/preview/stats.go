package preview

// PoolStats is a BufferPool counters snapshot.
type PoolStats struct {
	// Capacity is the configured recycle-queue bound
	Capacity int `json:"capacity"`

	// Queued is the recycle-queue length at snapshot time
	Queued int `json:"queued"`

	// Allocated counts fresh buffer allocations
	Allocated uint64 `json:"allocated"`

	// Reused counts buffers handed back out from the recycle queue
	Reused uint64 `json:"reused"`

	// Discarded counts queue entries dropped on dimension mismatch
	Discarded uint64 `json:"discarded"`

	// Released counts buffers appended back to the queue
	Released uint64 `json:"released"`

	// Dropped counts releases discarded because the queue was over capacity
	Dropped uint64 `json:"dropped"`
}

// NotifierStats is a RedrawNotifier counters snapshot.
type NotifierStats struct {
	// Signals counts Signal() calls
	Signals uint64 `json:"signals"`

	// Subscribers holds per-subscriber delivery counters
	Subscribers map[string]SubscriberStats `json:"subscribers,omitempty"`
}

// SubscriberStats tracks signal delivery for one subscriber.
type SubscriberStats struct {
	// Delivered counts signals placed into the subscriber's channel
	Delivered uint64 `json:"delivered"`

	// Coalesced counts signals folded into an already-pending one
	Coalesced uint64 `json:"coalesced"`
}

// PipelineStats is an operational snapshot of the whole pipeline.
//
// Non-blocking and safe for concurrent use; values may be mutually slightly
// stale, which is acceptable for monitoring.
type PipelineStats struct {
	// FramesIn counts frames that entered the ingest step
	FramesIn uint64 `json:"frames_in"`

	// FramesSkipped counts nil/empty frames silently dropped
	FramesSkipped uint64 `json:"frames_skipped"`

	// SizeDefects counts rejected frames whose data length lied about
	// their dimensions (should stay 0)
	SizeDefects uint64 `json:"size_defects"`

	// PublishedSeq is the slot's publish count (latest frame ordinal)
	PublishedSeq uint64 `json:"published_seq"`

	// Pool is the buffer-pool snapshot
	Pool PoolStats `json:"pool"`

	// Notifier is the redraw-notifier snapshot
	Notifier NotifierStats `json:"notifier"`
}

// Stats returns an operational snapshot.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		FramesIn:      p.framesIn.Load(),
		FramesSkipped: p.framesSkipped.Load(),
		SizeDefects:   p.sizeDefects.Load(),
		PublishedSeq:  p.slot.Seq(),
		Pool:          p.pool.Stats(),
		Notifier:      p.notifier.Stats(),
	}
}
