package xskring

import "fmt"

// Queue bundles the frame pool with its RX ring (classifier-producer,
// drainer-consumer) and fill ring (drainer-producer, classifier-consumer)
// for one steered queue, implementing the frame lifecycle of spec §4.3:
// FREE (fill ring) -> INFLIGHT (classifier writing) -> READY (on RX ring)
// -> PROCESSING (drainer holds it) -> FREE again.
type Queue struct {
	Pool *Pool
	RX   *Ring // classifier -> drainer
	Fill *Ring // drainer -> classifier
}

// NewQueue allocates a pool and both rings, then seeds the fill ring with
// every frame offset — the "fill ring must be pre-populated at startup
// with all pool offsets" requirement in spec §4.3.
func NewQueue(frameSize, numFrames, ringCapacity uint32) (*Queue, error) {
	pool, err := NewPool(frameSize, numFrames)
	if err != nil {
		return nil, err
	}
	rx, err := NewRing(ringCapacity)
	if err != nil {
		return nil, err
	}
	fill, err := NewRing(ringCapacity)
	if err != nil {
		return nil, err
	}
	q := &Queue{Pool: pool, RX: rx, Fill: fill}
	for _, off := range pool.AllOffsets() {
		if !fill.Push(NewDescriptor(off, 0)) {
			return nil, fmt.Errorf("xskring: fill ring capacity %d too small for %d pool frames", ringCapacity, numFrames)
		}
	}
	return q, nil
}

// Reserve pops one free frame offset from the fill ring for the classifier
// to write into (the FREE -> INFLIGHT transition). ok is false if the
// drainer has starved the fill ring.
func (q *Queue) Reserve() (offset uint64, ok bool) {
	d, ok := q.Fill.Pop()
	if !ok {
		return 0, false
	}
	return d.Offset(), true
}

// Publish pushes a written frame onto the RX ring for the drainer (the
// INFLIGHT -> READY transition). Returns false on ring-full, in which case
// the caller must still return the offset to the fill ring to avoid
// leaking it — frame conservation holds even on the overflow path.
func (q *Queue) Publish(offset uint64, length uint16) bool {
	return q.RX.Push(NewDescriptor(offset, length))
}

// Release returns a processed frame offset to the fill ring (the
// PROCESSING -> FREE transition).
func (q *Queue) Release(offset uint64) bool {
	return q.Fill.Push(NewDescriptor(offset, 0))
}

// Outstanding returns the number of frames not currently in the fill ring
// — i.e. either on the RX ring or checked out to a drainer batch. Used by
// frame-conservation tests: Fill.Len() + Outstanding() must always equal
// the pool's total frame count, once in-flight batches are accounted for
// by the caller.
func (q *Queue) Outstanding() uint32 {
	return q.Pool.NumFrames() - q.Fill.Len()
}
