// Package registry keeps named lists and serialises access to them.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/catatsuy/kusari/internal/llmgr"
	"github.com/catatsuy/kusari/internal/model"
)

var (
	ErrUnknownList      = errors.New("unknown list")
	ErrPayloadTooLarge  = errors.New("payload larger than element size")
	ErrUnknownPosition  = errors.New("position must be end, before or after")
	ErrUnknownDirection = errors.New("direction must be top, bottom, next or last")
)

// Observer is told about the outcome of every list operation.
type Observer interface {
	Observe(list string, st llmgr.Status, count int)
	Forget(list string)
}

// Position selects where Insert links the new element.
type Position int

const (
	End Position = iota
	Before
	After
)

func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(s) {
	case "end":
		return End, nil
	case "before":
		return Before, nil
	case "after":
		return After, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPosition, s)
}

// Move selects a cursor movement for Point.
type Move int

const (
	Top Move = iota
	Bottom
	Next
	Last
)

func ParseMove(s string) (Move, error) {
	switch strings.ToLower(s) {
	case "top":
		return Top, nil
	case "bottom":
		return Bottom, nil
	case "next":
		return Next, nil
	case "last", "prev":
		return Last, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

type Registry struct {
	mu sync.Mutex

	lists       map[string]*llmgr.Manager
	maxElements int
	observer    Observer
}

// NewRegistry returns an empty registry. maxElements bounds each list; 0 means
// unbounded. observer may be nil.
func NewRegistry(maxElements int, observer Observer) *Registry {
	if maxElements < 0 {
		maxElements = 0
	}
	return &Registry{
		lists:       make(map[string]*llmgr.Manager),
		maxElements: maxElements,
		observer:    observer,
	}
}

func (r *Registry) Register(name string, size int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.lists[name]; ok {
		m.Register(size, name)
		return r.resultLocked(name, m)
	}

	m := llmgr.NewManager(llmgr.WithCapacity(r.maxElements))
	if !m.Register(size, name) {
		err := r.resultLocked(name, m)
		if r.observer != nil {
			r.observer.Forget(name)
		}
		return err
	}
	r.lists[name] = m
	return r.resultLocked(name, m)
}

func (r *Registry) Deregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return err
	}
	if !m.Deregister() {
		return r.resultLocked(name, m)
	}
	delete(r.lists, name)
	if r.observer != nil {
		r.observer.Forget(name)
	}
	return nil
}

// Append links payload at the end of the list.
func (r *Registry) Append(name string, payload []byte) (model.Element, error) {
	return r.Insert(name, End, payload)
}

// Insert links payload at pos relative to the cursor. Payloads shorter than
// the element size are zero padded.
func (r *Registry) Insert(name string, pos Position, payload []byte) (model.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return model.Element{}, err
	}
	if len(payload) > m.ElementSize() {
		return model.Element{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), m.ElementSize())
	}

	buf := m.Staging()
	n := copy(buf, payload)
	clear(buf[n:])

	switch pos {
	case Before:
		m.AddBefore()
	case After:
		m.AddAfter()
	default:
		m.AddEnd()
	}
	if err := r.resultLocked(name, m); err != nil {
		return model.Element{}, err
	}
	return currentElement(name, m), nil
}

// Current returns a copy of the current element. ok is false when the list is empty.
func (r *Registry) Current(name string) (e model.Element, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return model.Element{}, false, err
	}
	if m.Len() == 0 {
		return model.Element{}, false, nil
	}
	return currentElement(name, m), true, nil
}

func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return err
	}
	m.Delete()
	return r.resultLocked(name, m)
}

func (r *Registry) DeleteAll(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return err
	}
	m.DeleteAll()
	return r.resultLocked(name, m)
}

func (r *Registry) Point(name string, mv Move) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return err
	}
	switch mv {
	case Top:
		m.PointTop()
	case Bottom:
		m.PointBottom()
	case Next:
		m.PointNext()
	case Last:
		m.PointLast()
	default:
		return fmt.Errorf("%w: %d", ErrUnknownDirection, mv)
	}
	return r.resultLocked(name, m)
}

func (r *Registry) Token(name string) (llmgr.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return llmgr.Token{}, err
	}
	tok := m.GetToken()
	return tok, r.resultLocked(name, m)
}

func (r *Registry) Seek(name string, tok llmgr.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return err
	}
	m.SetPointer(tok)
	return r.resultLocked(name, m)
}

func (r *Registry) Len(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return 0, err
	}
	return m.Len(), nil
}

// Status returns the diagnostic record of the last operation on the list.
func (r *Registry) Status(name string) (llmgr.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return llmgr.Status{}, err
	}
	return m.GetStatus(), nil
}

// Dump copies every element from head to tail. The cursor is restored
// afterwards through a token.
func (r *Registry) Dump(name string) ([]model.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.getLocked(name)
	if err != nil {
		return nil, err
	}
	if m.Len() == 0 {
		return nil, nil
	}

	saved := m.GetToken()
	out := make([]model.Element, 0, m.Len())
	m.PointTop()
	for {
		out = append(out, currentElement(name, m))
		if !m.PointNext() {
			break
		}
	}
	if !m.SetPointer(saved) {
		return nil, r.resultLocked(name, m)
	}
	return out, nil
}

// Lists describes every registered list ordered by name.
func (r *Registry) Lists() []model.ListInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.ListInfo, 0, len(r.lists))
	for name, m := range r.lists {
		out = append(out, model.ListInfo{
			Name:        name,
			ElementSize: m.ElementSize(),
			Count:       m.Len(),
		})
	}
	slices.SortFunc(out, func(a, b model.ListInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Close empties and deregisters every list.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, m := range r.lists {
		m.Close()
		if r.observer != nil {
			r.observer.Forget(name)
		}
	}
	clear(r.lists)
}

func (r *Registry) getLocked(name string) (*llmgr.Manager, error) {
	m, ok := r.lists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownList, name)
	}
	return m, nil
}

func (r *Registry) resultLocked(name string, m *llmgr.Manager) error {
	st := m.GetStatus()
	if r.observer != nil {
		r.observer.Observe(name, st, m.Len())
	}
	return st.Err()
}

func currentElement(name string, m *llmgr.Manager) model.Element {
	tok, _ := m.Cursor()
	return model.Element{
		List:    name,
		Payload: slices.Clone(m.Current()),
		Token:   tok.String(),
		Nonce:   tok.Nonce,
	}
}
