package research

import (
	"errors"
	"sync"
)

// ErrDuplicateID is returned by Create when the id is already registered.
// The id generation strategy makes this unreachable in practice.
var ErrDuplicateID = errors.New("session id already exists")

// Registry is the process-wide session table. Records are fully constructed
// before insertion, so readers never observe a partially initialized record.
type Registry struct {
	mu      sync.Mutex
	records map[string]*SessionRecord
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*SessionRecord)}
}

// Create inserts a new record. The registry keeps its own copy.
func (r *Registry) Create(rec *SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.ID]; exists {
		return ErrDuplicateID
	}
	stored := rec.clone()
	r.records[rec.ID] = &stored
	r.order = append(r.order, rec.ID)
	return nil
}

// Get returns a copy of the record, or false when the id is unknown.
func (r *Registry) Get(id string) (SessionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return SessionRecord{}, false
	}
	return rec.clone(), true
}

// Update runs mutate against the stored record under the registry lock.
// Updates overwrite fields wholesale; nothing appends to prior state. A
// missing id is a no-op and returns false.
func (r *Registry) Update(id string, mutate func(*SessionRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false
	}
	mutate(rec)
	return true
}

// List returns one summary per session in insertion order. An empty registry
// yields an empty, non-nil slice.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		rec := r.records[id]
		out = append(out, Summary{
			ID:        rec.ID,
			Query:     rec.Query,
			Status:    rec.Status,
			StartedAt: rec.StartedAt,
		})
	}
	return out
}
