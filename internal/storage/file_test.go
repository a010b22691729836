package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := s.Get(ctx, KeyAuthToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, KeyAuthToken, "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, err := s.Get(ctx, KeyAuthToken)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "abc" {
		t.Errorf("Get() = %q, want abc", v)
	}

	if err := s.Delete(ctx, KeyAuthToken); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, KeyAuthToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, KeyAuthToken); err != nil {
		t.Errorf("Delete() of absent key error = %v", err)
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := s.Set(ctx, KeyWalletAddress, "0xAA"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, KeyWalletConnected, "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}
	v, err := reopened.Get(ctx, KeyWalletAddress)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if v != "0xAA" {
		t.Errorf("Get() = %q, want 0xAA", v)
	}
}

func TestFileStore_FileMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := s.Set(ctx, KeyAuthToken, "secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestToken_AbsentIsEmpty(t *testing.T) {
	ctx := context.Background()

	s := NewMemoryStore()
	token, err := Token(ctx, s)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "" {
		t.Errorf("Token() = %q, want empty", token)
	}

	if err := s.Set(ctx, KeyAuthToken, "abc"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	token, err = Token(ctx, s)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "abc" {
		t.Errorf("Token() = %q, want abc", token)
	}
}
