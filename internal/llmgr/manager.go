// Package llmgr manages a doubly linked list of fixed-size elements accessed
// one at a time through a cursor.
//
// Callers fill the staging buffer returned by Staging and then call one of the
// Add operations; the buffer becomes the new element and a fresh staging
// buffer takes its place. Any element can be exported as a Token and selected
// again in O(1) with SetPointer.
//
// A Manager is not safe for concurrent use.
package llmgr

const (
	MinElementSize = 1
	MaxElementSize = 8192
)

type Manager struct {
	name        string
	elementSize int
	registered  bool

	arena *arena
	head  int32
	tail  int32
	// cursor is noSlot exactly when count is 0.
	cursor int32
	count  int

	staging []byte
	status  Status
}

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity bounds the number of elements a Manager holds at once. Adding
// beyond the bound fails with CodeAllocFail. n <= 0 means unbounded.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		m.arena = newArena(n)
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		arena:  newArena(0),
		head:   noSlot,
		tail:   noSlot,
		cursor: noSlot,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status = Status{
		OK:          true,
		CommandName: Command(0).String(),
		Code:        CodeOK,
		CodeName:    CodeOK.String(),
		Message:     CodeOK.Message(),
	}
	return m
}

func (m *Manager) Name() string { return m.name }
func (m *Manager) ElementSize() int { return m.elementSize }
func (m *Manager) Registered() bool { return m.registered }
func (m *Manager) Len() int { return m.count }
func (m *Manager) GetStatus() Status { return m.status }

// Staging returns the buffer the next Add operation links into the list. It
// is nil while the Manager is not registered and is replaced by every
// successful Add.
func (m *Manager) Staging() []byte {
	return m.staging
}

// Current returns the payload of the current element, or nil when the list is
// empty. The slice aliases list storage until the next mutating or navigation call.
func (m *Manager) Current() []byte {
	if m.cursor == noSlot {
		return nil
	}
	return m.arena.at(m.cursor).payload
}

func (m *Manager) Register(size int, name string) bool {
	m.begin(CmdRegister)
	if m.registered {
		return m.fail(CodeAlreadyRegistered)
	}
	if size < MinElementSize || size > MaxElementSize {
		return m.fail(CodeInvalidSize)
	}

	m.name = name
	m.elementSize = size
	m.staging = make([]byte, size)
	m.registered = true
	m.status.List = name
	return true
}

func (m *Manager) Deregister() bool {
	m.begin(CmdDeregister)
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	if m.count > 0 {
		return m.fail(CodeNotEmpty)
	}
	m.staging = nil
	m.elementSize = 0
	m.registered = false
	return true
}

// Close deletes every element and deregisters the list.
func (m *Manager) Close() {
	if !m.registered {
		return
	}
	m.deleteAll()
	m.Deregister()
}

// takeStaging hands the filled staging buffer over as a new element and
// installs a fresh one. The payload is moved, not copied.
func (m *Manager) takeStaging() (int32, bool) {
	if m.arena.full() {
		return noSlot, false
	}
	next := make([]byte, m.elementSize)
	filled := m.staging
	m.staging = next
	return m.arena.alloc(filled), true
}

func (m *Manager) AddEnd() bool {
	m.begin(CmdAddEnd)
	return m.addEnd()
}

// AddBefore inserts before the current element. On an empty list it behaves
// like AddEnd.
func (m *Manager) AddBefore() bool {
	m.begin(CmdAddBefore)
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	if m.count == 0 {
		return m.addEnd()
	}
	idx, ok := m.takeStaging()
	if !ok {
		return m.fail(CodeAllocFail)
	}
	m.linkBefore(idx, m.cursor)
	return true
}

// AddAfter inserts after the current element. On an empty list it behaves
// like AddEnd.
func (m *Manager) AddAfter() bool {
	m.begin(CmdAddAfter)
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	if m.count == 0 {
		return m.addEnd()
	}
	idx, ok := m.takeStaging()
	if !ok {
		return m.fail(CodeAllocFail)
	}
	m.linkAfter(idx, m.cursor)
	return true
}

func (m *Manager) addEnd() bool {
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	idx, ok := m.takeStaging()
	if !ok {
		return m.fail(CodeAllocFail)
	}
	if m.tail == noSlot {
		m.head = idx
		m.tail = idx
		m.cursor = idx
		m.count++
		return true
	}
	m.linkAfter(idx, m.tail)
	return true
}

// Delete removes the current element. The cursor moves to the new head when
// the head was removed, to the new tail when the tail was removed, and to the
// successor otherwise.
func (m *Manager) Delete() bool {
	m.begin(CmdDelete)
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	if m.count == 0 {
		return m.fail(CodeEmpty)
	}
	m.unlink(m.cursor)
	return true
}

// DeleteAll removes every element. It succeeds on an empty list.
func (m *Manager) DeleteAll() bool {
	m.begin(CmdDeleteAll)
	m.deleteAll()
	return true
}

func (m *Manager) deleteAll() {
	m.cursor = m.head
	for m.count > 0 {
		m.unlink(m.cursor)
	}
}

func (m *Manager) PointTop() bool {
	m.begin(CmdPointTop)
	m.cursor = m.head
	return true
}

func (m *Manager) PointBottom() bool {
	m.begin(CmdPointBottom)
	m.cursor = m.tail
	return true
}

// PointNext moves toward the tail. At the tail it fails with CodeListEnd and
// leaves the cursor in place.
func (m *Manager) PointNext() bool {
	m.begin(CmdPointNext)
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	if m.cursor == noSlot {
		return m.fail(CodeEmpty)
	}
	next := m.arena.at(m.cursor).next
	if next == noSlot {
		return m.fail(CodeListEnd)
	}
	m.cursor = next
	return true
}

// PointLast moves toward the head. At the head it fails with CodeListEnd and
// leaves the cursor in place.
func (m *Manager) PointLast() bool {
	m.begin(CmdPointLast)
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	if m.cursor == noSlot {
		return m.fail(CodeEmpty)
	}
	prev := m.arena.at(m.cursor).prev
	if prev == noSlot {
		return m.fail(CodeListEnd)
	}
	m.cursor = prev
	return true
}
