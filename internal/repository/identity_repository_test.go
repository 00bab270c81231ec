package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func exerciseRepository(t *testing.T, repo IdentityRepository) {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.Load(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty load: %v", err)
	}
	if err := repo.Save(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, "other", []byte("x")); err != nil {
		t.Fatalf("save other: %v", err)
	}
	if err := repo.Save(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := repo.Load(ctx, "k")
	if err != nil || string(got) != "v2" {
		t.Fatalf("load = %q, %v", got, err)
	}
	if err := repo.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Load(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load after delete: %v", err)
	}
	if got, _ := repo.Load(ctx, "other"); string(got) != "x" {
		t.Fatalf("unrelated key lost: %q", got)
	}
}

func TestMemoryIdentityRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryIdentityRepository())
}

func TestFileIdentityRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.json")
	exerciseRepository(t, NewFileIdentityRepository(path))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
}

func TestFileIdentityRepositoryRemovesEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	repo := NewFileIdentityRepository(path)
	ctx := context.Background()
	if err := repo.Save(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected document removed, stat err = %v", err)
	}
}

func TestFileIdentityRepositoryIgnoresCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo := NewFileIdentityRepository(path)
	if _, err := repo.Load(context.Background(), "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load corrupt: %v", err)
	}
}
