// StageDataHandler (C10): a bounded reorder buffer per stage per context.
// Grounded directly on spec §4.9's prose contract (min-heap input buffer,
// ordered output list, credit-based delivery). The Open Question on
// buffer-full handling is resolved per spec §9: overflow is surfaced via
// OnBufferFull as a diagnostic, never used to drop data.
package video

import "container/heap"

// frameHeap is a min-heap of frames ordered by Number.
type frameHeap []Frame

func (h frameHeap) Len() int            { return len(h) }
func (h frameHeap) Less(i, j int) bool  { return h[i].Number < h[j].Number }
func (h frameHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *frameHeap) Push(x interface{}) { *h = append(*h, x.(Frame)) }
func (h *frameHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// StageDataHandler enforces strictly increasing delivery order and
// credit-based backpressure for one stage's output.
type StageDataHandler struct {
	Name             string
	MaxStoredEntries int

	// OnDeliverable asks the downstream stage how many more items it can
	// accept right now.
	OnDeliverable func() int
	// Deliver hands off up to that many items as a batch. Delivery happens
	// inline inside tryFlush, which calls OnTriggerNew right after it.
	Deliver func(items []Frame)
	// OnTriggerNew asks upstream for more data.
	OnTriggerNew func()
	// OnBufferFull is an overflow notification; a warning, never a reason
	// to drop data (spec §9 Open Question).
	OnBufferFull func()

	inData       frameHeap
	outData      []Frame
	nextExpected uint64
}

// NewStageDataHandler allocates a handler with nextExpected starting at 0.
func NewStageDataHandler(name string, maxStoredEntries int) *StageDataHandler {
	h := &StageDataHandler{Name: name, MaxStoredEntries: maxStoredEntries}
	heap.Init(&h.inData)
	return h
}

// Add pushes one item into the reorder buffer and attempts to flush.
func (h *StageDataHandler) Add(item Frame) {
	heap.Push(&h.inData, item)
	if h.inData.Len() > h.MaxStoredEntries && h.OnBufferFull != nil {
		h.OnBufferFull()
	}
	h.tryFlush()
}

// AddAll pushes a batch of items and attempts to flush once.
func (h *StageDataHandler) AddAll(items []Frame) {
	for _, item := range items {
		heap.Push(&h.inData, item)
	}
	if h.inData.Len() > h.MaxStoredEntries && h.OnBufferFull != nil {
		h.OnBufferFull()
	}
	h.tryFlush()
}

// tryFlush moves every in-order-ready item from inData to outData, then
// delivers as much of outData as downstream credit allows.
func (h *StageDataHandler) tryFlush() {
	for h.inData.Len() > 0 && h.inData[0].Number == h.nextExpected {
		item := heap.Pop(&h.inData).(Frame)
		h.outData = append(h.outData, item)
		h.nextExpected++
	}

	if len(h.outData) == 0 {
		if h.OnTriggerNew != nil {
			h.OnTriggerNew()
		}
		return
	}

	credit := 0
	if h.OnDeliverable != nil {
		credit = h.OnDeliverable()
	}

	if credit == 0 {
		return
	}

	if credit >= len(h.outData) {
		batch := h.outData
		h.outData = nil
		if h.Deliver != nil {
			h.Deliver(batch)
		}
	} else {
		batch := h.outData[:credit]
		h.outData = append([]Frame(nil), h.outData[credit:]...)
		if h.Deliver != nil {
			h.Deliver(batch)
		}
	}

	if h.OnTriggerNew != nil {
		h.OnTriggerNew()
	}
}

// Free returns remaining input buffer capacity, never negative.
func (h *StageDataHandler) Free() int {
	free := h.MaxStoredEntries - h.inData.Len()
	if free < 0 {
		return 0
	}
	return free
}
