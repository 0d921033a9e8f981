package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

// contractTest exercises the Store interface guarantees every backend must
// provide. It runs against the memory backend here; the Redis and SQL
// backends share the semantics but need live servers.
func contractTest(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(missing) = %v, want ErrNotFound", err)
		}
	})

	t.Run("SetGetDelete", func(t *testing.T) {
		if err := s.Set(ctx, "k1", []byte("v1")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, "k1")
		if err != nil || !bytes.Equal(got, []byte("v1")) {
			t.Fatalf("Get = %q, %v; want v1", got, err)
		}
		if err := s.Set(ctx, "k1", []byte("v2")); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		got, _ = s.Get(ctx, "k1")
		if !bytes.Equal(got, []byte("v2")) {
			t.Fatalf("Get after overwrite = %q, want v2", got)
		}
		if err := s.Delete(ctx, "k1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after delete = %v, want ErrNotFound", err)
		}
		// Deleting an absent key is not an error.
		if err := s.Delete(ctx, "k1"); err != nil {
			t.Errorf("Delete(absent) = %v, want nil", err)
		}
	})

	t.Run("CreateIfAbsent", func(t *testing.T) {
		created, err := s.CreateIfAbsent(ctx, "c1", []byte("first"))
		if err != nil || !created {
			t.Fatalf("first create = %v, %v; want true", created, err)
		}
		created, err = s.CreateIfAbsent(ctx, "c1", []byte("second"))
		if err != nil {
			t.Fatalf("second create: %v", err)
		}
		if created {
			t.Error("second create reported created=true")
		}
		got, _ := s.Get(ctx, "c1")
		if !bytes.Equal(got, []byte("first")) {
			t.Errorf("value = %q, want the first write preserved", got)
		}
	})

	t.Run("ScanByPrefix", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			if err := s.Set(ctx, fmt.Sprintf("scan:%d", i), []byte{byte('0' + i)}); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
		if err := s.Set(ctx, "scanner:oops", []byte("x")); err != nil {
			t.Fatalf("Set: %v", err)
		}

		pairs, err := s.ScanByPrefix(ctx, "scan:")
		if err != nil {
			t.Fatalf("ScanByPrefix: %v", err)
		}
		if len(pairs) != 3 {
			t.Errorf("matched %d keys, want exactly the scan: prefix (got %v)", len(pairs), pairs)
		}
		if _, ok := pairs["scanner:oops"]; ok {
			t.Error("prefix scan must not match a longer sibling prefix")
		}

		empty, err := s.ScanByPrefix(ctx, "nosuchprefix:")
		if err != nil {
			t.Fatalf("ScanByPrefix(empty): %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("empty scan returned %d keys", len(empty))
		}
	})

	t.Run("UpdateCreatesWhenAbsent", func(t *testing.T) {
		final, err := s.Update(ctx, "u1", func(old []byte) ([]byte, error) {
			if old != nil {
				t.Errorf("old = %q, want nil for an absent key", old)
			}
			return []byte("born"), nil
		})
		if err != nil || !bytes.Equal(final, []byte("born")) {
			t.Fatalf("Update = %q, %v; want born", final, err)
		}
	})

	t.Run("UpdateMutates", func(t *testing.T) {
		if err := s.Set(ctx, "u2", []byte("a")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		final, err := s.Update(ctx, "u2", func(old []byte) ([]byte, error) {
			return append(old, 'b'), nil
		})
		if err != nil || !bytes.Equal(final, []byte("ab")) {
			t.Fatalf("Update = %q, %v; want ab", final, err)
		}
		got, _ := s.Get(ctx, "u2")
		if !bytes.Equal(got, []byte("ab")) {
			t.Errorf("stored = %q, want ab", got)
		}
	})

	t.Run("UpdateSkipWrite", func(t *testing.T) {
		if err := s.Set(ctx, "u3", []byte("keep")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		final, err := s.Update(ctx, "u3", func(old []byte) ([]byte, error) {
			return nil, nil // nothing to change
		})
		if err != nil || !bytes.Equal(final, []byte("keep")) {
			t.Fatalf("Update = %q, %v; want keep unchanged", final, err)
		}
	})

	t.Run("UpdatePropagatesError", func(t *testing.T) {
		sentinel := errors.New("rejected")
		if err := s.Set(ctx, "u4", []byte("v")); err != nil {
			t.Fatalf("Set: %v", err)
		}
		_, err := s.Update(ctx, "u4", func(old []byte) ([]byte, error) {
			return nil, sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Errorf("Update error = %v, want the closure's error", err)
		}
		got, _ := s.Get(ctx, "u4")
		if !bytes.Equal(got, []byte("v")) {
			t.Errorf("value changed on failed update: %q", got)
		}
	})
}

func TestMemoryStoreContract(t *testing.T) {
	contractTest(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	buf := []byte("original")
	if err := s.Set(ctx, "k", buf); err != nil {
		t.Fatalf("Set: %v", err)
	}
	buf[0] = 'X'

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("stored value aliased the caller's buffer: %q", got)
	}
}
