package llmgr

// linkAfter splices idx in after at and makes it current.
func (m *Manager) linkAfter(idx, at int32) {
	e := m.arena.at(idx)
	a := m.arena.at(at)

	n := a.next
	a.next = idx
	e.prev = at
	e.next = n
	if n == noSlot {
		m.tail = idx
	} else {
		m.arena.at(n).prev = idx
	}
	m.cursor = idx
	m.count++
}

// linkBefore splices idx in before at and makes it current.
func (m *Manager) linkBefore(idx, at int32) {
	e := m.arena.at(idx)
	a := m.arena.at(at)

	p := a.prev
	a.prev = idx
	e.next = at
	e.prev = p
	if p == noSlot {
		m.head = idx
	} else {
		m.arena.at(p).next = idx
	}
	m.cursor = idx
	m.count++
}

// unlink removes idx from the chain, releases its slot and repositions the
// cursor on the element that took its place.
func (m *Manager) unlink(idx int32) {
	e := m.arena.at(idx)
	next, prev := e.next, e.prev

	switch {
	case idx == m.head:
		m.head = next
		if next == noSlot {
			m.tail = noSlot
		} else {
			m.arena.at(next).prev = noSlot
		}
		m.cursor = next
	case idx == m.tail:
		m.tail = prev
		m.arena.at(prev).next = noSlot
		m.cursor = prev
	default:
		m.arena.at(prev).next = next
		m.arena.at(next).prev = prev
		m.cursor = next
	}

	m.arena.release(idx)
	m.count--
}
