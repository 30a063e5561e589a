package llmgr

import "math"

const (
	noSlot  int32 = -1
	maxSlot       = math.MaxInt32
)

// element is one arena slot. A slot is live while it is linked into the chain.
type element struct {
	next int32
	prev int32

	gen   uint32
	nonce uint64
	live  bool

	payload []byte
}

// arena stores elements by stable slot index and recycles released slots.
type arena struct {
	slots []element
	free  []int32
	live  int
	// limit caps the number of live elements. 0 means unbounded.
	limit int
}

func newArena(limit int) *arena {
	if limit < 0 {
		limit = 0
	}
	return &arena{limit: limit}
}

func (a *arena) full() bool {
	return a.limit > 0 && a.live >= a.limit
}

// alloc takes ownership of payload and returns the slot holding it.
func (a *arena) alloc(payload []byte) int32 {
	var idx int32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, element{})
		idx = int32(len(a.slots) - 1)
	}

	e := &a.slots[idx]
	e.next = noSlot
	e.prev = noSlot
	e.nonce = newNonce()
	e.live = true
	e.payload = payload
	a.live++
	return idx
}

// release zeroes the nonce and bumps the generation so outstanding tokens go stale.
func (a *arena) release(idx int32) {
	e := &a.slots[idx]
	e.nonce = 0
	e.gen++
	e.live = false
	e.payload = nil
	e.next = noSlot
	e.prev = noSlot
	a.free = append(a.free, idx)
	a.live--
}

func (a *arena) at(idx int32) *element {
	return &a.slots[idx]
}

// lookup returns the live slot idx with generation gen, if any.
func (a *arena) lookup(idx int32, gen uint32) (*element, bool) {
	if idx < 0 || int(idx) >= len(a.slots) {
		return nil, false
	}
	e := &a.slots[idx]
	if !e.live || e.gen != gen {
		return nil, false
	}
	return e, true
}
