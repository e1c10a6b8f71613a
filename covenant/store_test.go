package covenant

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t)
	a := New("escrow", "1.0.0", "0.1.0", []byte{0xf1, 0x00, 0x07})

	if err := s.Put(a); err != nil {
		t.Fatalf("put error: %v", err)
	}
	got, err := s.Get(a.HexHash())
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.HexHash() != a.HexHash() || got.Name != a.Name {
		t.Errorf("got %s/%s, want %s/%s", got.HexHash(), got.Name, a.HexHash(), a.Name)
	}
}

func TestStorePutIdempotent(t *testing.T) {
	s := openTestStore(t)
	a := New("escrow", "1.0.0", "0.1.0", []byte{0x09})

	if err := s.Put(a); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.Put(a); err != nil {
		t.Fatalf("second put: %v", err)
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("store lists %d artifacts, want 1", len(entries))
	}
}

func TestStorePutRejectsTampered(t *testing.T) {
	s := openTestStore(t)
	a := New("escrow", "1.0.0", "0.1.0", []byte{0x09})
	a.Bytecode = []byte{0xff}

	if err := s.Put(a); err == nil {
		t.Error("tampered artifact was stored")
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStoreList(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"beta", "alpha"} {
		if err := s.Put(New(name, "1.0.0", "0.1.0", []byte(name))); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}

	entries, err := s.List()
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("listed %d artifacts, want 2", len(entries))
	}
	if entries[0].Name != "alpha" || entries[1].Name != "beta" {
		t.Errorf("listing order = %s, %s; want alpha, beta", entries[0].Name, entries[1].Name)
	}
}

func TestStoreDelete(t *testing.T) {
	s := openTestStore(t)
	a := New("escrow", "1.0.0", "0.1.0", []byte{0x09})
	if err := s.Put(a); err != nil {
		t.Fatalf("put error: %v", err)
	}

	if err := s.Delete(a.HexHash()); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, err := s.Get(a.HexHash()); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted artifact still present: %v", err)
	}
	if err := s.Delete(a.HexHash()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	a := New("escrow", "1.0.0", "0.1.0", []byte{0x09})

	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := s.Put(a); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	s, err = OpenStore(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(a.HexHash()); err != nil {
		t.Errorf("artifact lost across reopen: %v", err)
	}
}
