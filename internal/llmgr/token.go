package llmgr

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

const tokenMagic uint32 = 1955

// Token addresses one element of a Manager without traversing the list.
// The zero Token is never valid.
type Token struct {
	Slot       uint32
	Generation uint32
	Nonce      uint64
	Magic      uint32
}

// Valid reports whether t was issued by GetToken. It says nothing about
// whether the element still exists; SetPointer checks that.
func (t Token) Valid() bool {
	return t.Magic == tokenMagic
}

// String encodes t as "slot.generation.nonce" in hex, or "-" when t is not valid.
func (t Token) String() string {
	if !t.Valid() {
		return "-"
	}
	return fmt.Sprintf("%x.%x.%016x", t.Slot, t.Generation, t.Nonce)
}

// ParseToken decodes the output of Token.String.
func ParseToken(s string) (Token, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Token{}, fmt.Errorf("parse token %q: %w", s, ErrInvalidToken)
	}
	slot, err := strconv.ParseUint(parts[0], 16, 31)
	if err != nil {
		return Token{}, fmt.Errorf("parse token %q slot: %w", s, ErrInvalidToken)
	}
	gen, err := strconv.ParseUint(parts[1], 16, 32)
	if err != nil {
		return Token{}, fmt.Errorf("parse token %q generation: %w", s, ErrInvalidToken)
	}
	nonce, err := strconv.ParseUint(parts[2], 16, 64)
	if err != nil || nonce == 0 {
		return Token{}, fmt.Errorf("parse token %q nonce: %w", s, ErrInvalidToken)
	}
	return Token{
		Slot:       uint32(slot),
		Generation: uint32(gen),
		Nonce:      nonce,
		Magic:      tokenMagic,
	}, nil
}

// newNonce never returns 0; a zero nonce marks a released slot.
var newNonce = func() uint64 {
	for {
		if n := rand.Uint64(); n != 0 {
			return n
		}
	}
}

func (m *Manager) tokenFor(idx int32) Token {
	e := m.arena.at(idx)
	return Token{
		Slot:       uint32(idx),
		Generation: e.gen,
		Nonce:      e.nonce,
		Magic:      tokenMagic,
	}
}

// GetToken returns a token for the current element. On an empty list the
// returned token is not valid.
func (m *Manager) GetToken() Token {
	m.begin(CmdGetToken)
	if !m.registered {
		m.fail(CodeNotRegistered)
		return Token{}
	}
	if m.count == 0 {
		m.fail(CodeEmpty)
		return Token{}
	}
	return m.tokenFor(m.cursor)
}

// SetPointer makes the element addressed by t current.
func (m *Manager) SetPointer(t Token) bool {
	m.begin(CmdSetPointer)
	if !t.Valid() {
		return m.fail(CodeInvalidToken)
	}
	if !m.registered {
		return m.fail(CodeNotRegistered)
	}
	if t.Slot > uint32(maxSlot) {
		return m.fail(CodeInvalidAddress)
	}
	idx := int32(t.Slot)
	e, ok := m.arena.lookup(idx, t.Generation)
	if !ok || e.nonce != t.Nonce {
		return m.fail(CodeInvalidAddress)
	}
	m.cursor = idx
	return true
}

// Cursor returns a token for the current element without touching the status
// record. ok is false when the list is empty.
func (m *Manager) Cursor() (t Token, ok bool) {
	if m.cursor == noSlot {
		return Token{}, false
	}
	return m.tokenFor(m.cursor), true
}
