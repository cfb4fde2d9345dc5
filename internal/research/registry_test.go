package research

import (
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestRegistryCreateAndGet(t *testing.T) {
	reg := NewRegistry()
	rec := &SessionRecord{
		ID:        "resp_1",
		Query:     "quantum computing 2024",
		Model:     "o4-mini-deep-research",
		Status:    StatusPending,
		StartedAt: time.Now(),
	}

	if err := reg.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, ok := reg.Get("resp_1")
	if !ok {
		t.Fatal("Get: record not found")
	}
	if got.Query != "quantum computing 2024" {
		t.Errorf("Query = %q", got.Query)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %q", got.Status)
	}
}

func TestRegistryDuplicateID(t *testing.T) {
	reg := NewRegistry()
	rec := &SessionRecord{ID: "dup", Status: StatusPending}

	if err := reg.Create(rec); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if err := reg.Create(rec); err != ErrDuplicateID {
		t.Fatalf("second Create = %v, want ErrDuplicateID", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Get("nope"); ok {
		t.Error("Get on empty registry should report not found")
	}
}

func TestRegistryUpdateUnknown(t *testing.T) {
	reg := NewRegistry()
	called := false
	if reg.Update("nope", func(*SessionRecord) { called = true }) {
		t.Error("Update on unknown id should return false")
	}
	if called {
		t.Error("mutator must not run for an unknown id")
	}
}

func TestRegistryUpdate(t *testing.T) {
	reg := NewRegistry()
	reg.Create(&SessionRecord{ID: "a", Status: StatusPending}) //nolint:errcheck

	ok := reg.Update("a", func(r *SessionRecord) {
		r.Status = StatusInProgress
	})
	if !ok {
		t.Fatal("Update should find the record")
	}

	got, _ := reg.Get("a")
	if got.Status != StatusInProgress {
		t.Errorf("Status = %q, want in_progress", got.Status)
	}
}

func TestRegistryListOrder(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("s-%d", i)
		if err := reg.Create(&SessionRecord{ID: id, Query: id, Status: StatusPending}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	list := reg.List()
	if len(list) != 5 {
		t.Fatalf("got %d summaries, want 5", len(list))
	}
	for i, s := range list {
		want := fmt.Sprintf("s-%d", i)
		if s.ID != want {
			t.Errorf("list[%d].ID = %q, want %q (insertion order)", i, s.ID, want)
		}
	}
}

func TestRegistryListEmpty(t *testing.T) {
	reg := NewRegistry()
	list := reg.List()
	if list == nil {
		t.Fatal("List should return an empty slice, not nil")
	}
	if len(list) != 0 {
		t.Errorf("got %d summaries, want 0", len(list))
	}
}

func TestRegistryCopiesDoNotAlias(t *testing.T) {
	reg := NewRegistry()
	reg.Create(&SessionRecord{ //nolint:errcheck
		ID:        "a",
		Status:    StatusCompleted,
		Citations: []Citation{{URL: "https://example.com", Title: "Source"}},
	})

	got, _ := reg.Get("a")
	got.Citations[0].URL = "https://tampered.example"

	again, _ := reg.Get("a")
	if again.Citations[0].URL != "https://example.com" {
		t.Error("mutating a returned record must not affect the stored one")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("c-%d", i)
		g.Go(func() error {
			if err := reg.Create(&SessionRecord{ID: id, Status: StatusPending}); err != nil {
				return err
			}
			reg.Update(id, func(r *SessionRecord) { r.Status = StatusInProgress })
			reg.List()
			_, _ = reg.Get(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent access: %v", err)
	}

	if got := len(reg.List()); got != 20 {
		t.Fatalf("got %d records, want 20", got)
	}
}
