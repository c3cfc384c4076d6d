// Package session tracks the modal workflow state for one entity type:
// which modal (create form, edit form, delete confirmation) is open and
// which entity it targets. At most one modal is open at a time; open
// actions are only legal from the idle state.
package session

import (
	"sync"

	"github.com/transdovic/backoffice/internal/common"
)

// State enumerates the modal workflow states.
type State int

const (
	Idle State = iota
	CreateOpen
	EditOpen
	ConfirmDeleteOpen
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CreateOpen:
		return "create_open"
	case EditOpen:
		return "edit_open"
	case ConfirmDeleteOpen:
		return "confirm_delete_open"
	default:
		return "unknown"
	}
}

// Session is the workflow state for one entity type. The selection is
// present exactly while an edit or delete-confirmation modal is open.
type Session[E any] struct {
	mu        sync.Mutex
	state     State
	selection *E
}

func New[E any]() *Session[E] {
	return &Session[E]{}
}

// State returns the current modal state.
func (s *Session[E]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selection returns the entity targeted by the open edit or delete modal.
func (s *Session[E]) Selection() (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		var zero E
		return zero, false
	}
	return *s.selection, true
}

// OpenCreate opens the create form. Legal only from Idle.
func (s *Session[E]) OpenCreate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return common.ErrModalOpen
	}
	s.state = CreateOpen
	s.selection = nil
	return nil
}

// OpenEdit opens the edit form targeting e. Legal only from Idle.
func (s *Session[E]) OpenEdit(e E) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return common.ErrModalOpen
	}
	s.state = EditOpen
	s.selection = &e
	return nil
}

// OpenConfirmDelete opens the delete confirmation targeting e. Legal only
// from Idle.
func (s *Session[E]) OpenConfirmDelete(e E) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return common.ErrModalOpen
	}
	s.state = ConfirmDeleteOpen
	s.selection = &e
	return nil
}

// Close returns to Idle and clears the selection. Used both for cancel and
// for mutation success; a failed mutation never calls it.
func (s *Session[E]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
	s.selection = nil
}
