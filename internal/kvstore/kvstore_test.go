package kvstore

import (
	"context"
	"path/filepath"
	"testing"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), "entries")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = (_, %v, %v), want (_, false, nil)", ok, err)
	}

	if err := s.Put(ctx, "wget", []byte(`{"version":"1.24.5"}`)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	val, ok, err := s.Get(ctx, "wget")
	if err != nil || !ok {
		t.Fatalf("Get(wget) = (_, %v, %v), want (_, true, nil)", ok, err)
	}
	if string(val) != `{"version":"1.24.5"}` {
		t.Errorf("Get(wget) = %q", val)
	}

	if err := s.Put(ctx, "wget", []byte(`{"version":"1.25.0"}`)); err != nil {
		t.Fatalf("Put() overwrite failed: %v", err)
	}
	val, _, _ = s.Get(ctx, "wget")
	if string(val) != `{"version":"1.25.0"}` {
		t.Errorf("Get(wget) after overwrite = %q", val)
	}

	if err := s.Delete(ctx, "wget"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if has, _ := s.Has(ctx, "wget"); has {
		t.Errorf("Has(wget) = true after delete")
	}

	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete(absent) should not error, got %v", err)
	}
}

func TestIterate(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), "entries")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	names := []string{"zlib", "abseil", "mpv"}
	for _, n := range names {
		if err := s.Put(ctx, n, []byte(n)); err != nil {
			t.Fatalf("Put(%s) failed: %v", n, err)
		}
	}

	var got []string
	err = s.Iterate(ctx, func(key string, value []byte) error {
		got = append(got, key)
		return nil
	})
	if err != nil {
		t.Fatalf("Iterate() failed: %v", err)
	}
	want := []string{"abseil", "mpv", "zlib"}
	if len(got) != len(want) {
		t.Fatalf("Iterate() returned %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Iterate() order[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
