package persona

import "strings"

// Store exposes persona retrieval.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore is a read-only Store over a fixed persona list. Every persona
// handed out is a copy, traits included.
type MemoryStore struct {
	items []Persona
	index map[string]int
}

// NewMemoryStore indexes items by lower-cased ID. A later duplicate ID is
// ignored.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{index: make(map[string]int, len(items))}
	for _, item := range items {
		key := normalizeID(item.ID)
		if _, dup := s.index[key]; dup {
			continue
		}
		s.index[key] = len(s.items)
		s.items = append(s.items, item.clone())
	}
	return s
}

// List returns the personas in seed order.
func (s *MemoryStore) List() []Persona {
	out := make([]Persona, len(s.items))
	for i, item := range s.items {
		out[i] = item.clone()
	}
	return out
}

// FindByID looks up a persona ignoring case and surrounding space. An empty
// id resolves to DefaultID.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	key := normalizeID(id)
	if key == "" {
		key = DefaultID
	}
	i, ok := s.index[key]
	if !ok {
		return Persona{}, false
	}
	return s.items[i].clone(), true
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (p Persona) clone() Persona {
	if p.Traits != nil {
		p.Traits = append([]string(nil), p.Traits...)
	}
	return p
}
