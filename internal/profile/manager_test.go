package profile

import (
	"errors"
	"testing"
)

// memStore is an in-memory Store for Manager tests.
type memStore struct {
	data  string
	saved bool
	reads int
	err   error
}

func (s *memStore) SaveDefaultProfile(data string) error {
	if s.err != nil {
		return s.err
	}
	s.data = data
	s.saved = true
	return nil
}

func (s *memStore) DefaultProfile() (string, bool, error) {
	s.reads++
	if s.err != nil {
		return "", false, s.err
	}
	return s.data, s.saved, nil
}

func TestManager_GetEmpty(t *testing.T) {
	m := NewManager(&memStore{})

	_, ok, err := m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("ok = true for an empty store")
	}
}

func TestManager_SetAndGet(t *testing.T) {
	store := &memStore{}
	m := NewManager(store)

	want := validProfile()
	if err := m.Set(want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := m.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("ok = false after Set")
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
	// Set primes the cache; the store is not consulted again.
	if store.reads != 0 {
		t.Errorf("store reads = %d, want 0", store.reads)
	}
}

func TestManager_GetCachesStoreRead(t *testing.T) {
	store := &memStore{}
	store.SaveDefaultProfile(`{"name":"Alex Carter","gender":"female","intelligence":7,"wealth":4,"appearance":6,"health":8,"description":"A curious kid from a small coastal town."}`)
	m := NewManager(store)

	for i := 0; i < 3; i++ {
		p, ok, err := m.Get()
		if err != nil || !ok {
			t.Fatalf("Get #%d = (%v, %v)", i+1, ok, err)
		}
		if p.Name != "Alex Carter" {
			t.Errorf("Name = %q, want Alex Carter", p.Name)
		}
	}
	if store.reads != 1 {
		t.Errorf("store reads = %d, want 1", store.reads)
	}
}

func TestManager_StoreError(t *testing.T) {
	boom := errors.New("disk on fire")
	m := NewManager(&memStore{err: boom})

	if _, _, err := m.Get(); !errors.Is(err, boom) {
		t.Errorf("Get error = %v, want wrapped boom", err)
	}
	if err := m.Set(validProfile()); !errors.Is(err, boom) {
		t.Errorf("Set error = %v, want wrapped boom", err)
	}
}

func TestManager_BadStoredJSON(t *testing.T) {
	store := &memStore{data: "{not json", saved: true}
	m := NewManager(store)

	if _, _, err := m.Get(); err == nil {
		t.Error("Get: want error for corrupt stored profile")
	}
}
