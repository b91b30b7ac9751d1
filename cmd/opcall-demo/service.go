package main

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/opcall/opcall"
)

// Note is a stored note. Tags arrive as a JSON document.
type Note struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text" validate:"required"`
	Tags []string  `json:"tags,omitempty"`
}

// noteStore is shared across the per-call service instances.
type noteStore struct {
	mu    sync.Mutex
	notes map[uuid.UUID]Note
}

func newNoteStore() *noteStore {
	return &noteStore{notes: make(map[uuid.UUID]Note)}
}

// NoteService is the demo service. A fresh instance serves each call; only
// the store pointer is shared.
type NoteService struct {
	store *noteStore
}

// Operations names the parameters and exposes the service under short
// operation names. The author header is optional by contract.
func (s *NoteService) Operations() []opcall.OperationSpec {
	return []opcall.OperationSpec{
		{Method: "Put", Name: "put", Params: []opcall.ParamSpec{
			{Name: "note"},
			{Name: "X-Author", Header: true},
		}},
		{Method: "Get", Name: "get", Params: []opcall.ParamSpec{
			{Name: "id"},
		}},
		{Method: "List", Name: "list"},
	}
}

// Put stores a note, stamping the author from the transport header when
// one is present.
func (s *NoteService) Put(note Note, author string) (Note, error) {
	if note.ID == (uuid.UUID{}) {
		note.ID = uuid.New()
	}
	if author != "" {
		note.Text = fmt.Sprintf("%s (by %s)", note.Text, author)
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.notes[note.ID] = note
	return note, nil
}

// Get returns a stored note. The id parameter is parsed by uuid's own
// text factory.
func (s *NoteService) Get(id uuid.UUID) (Note, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	note, ok := s.store.notes[id]
	if !ok {
		return Note{}, opcall.NotFoundf("note %s not found", id)
	}
	return note, nil
}

// List returns all stored notes ordered by id.
func (s *NoteService) List() []Note {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	out := make([]Note, 0, len(s.store.notes))
	for _, n := range s.store.notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
