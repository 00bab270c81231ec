package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileIdentityRepository keeps a key/value document on disk, the local
// counterpart of browser local storage.
type fileIdentityRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileIdentityRepository stores records in the JSON document at path.
func NewFileIdentityRepository(path string) IdentityRepository {
	return &fileIdentityRepository{path: path}
}

func (r *fileIdentityRepository) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	payload, ok := doc[key]
	if !ok {
		return nil, ErrNotFound
	}
	return payload, nil
}

func (r *fileIdentityRepository) Save(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return err
	}
	doc[key] = payload
	return r.write(doc)
}

func (r *fileIdentityRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	if len(doc) == 0 {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", r.path, err)
		}
		return nil
	}
	return r.write(doc)
}

func (r *fileIdentityRepository) read() (map[string][]byte, error) {
	doc := map[string][]byte{}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt document holds nothing usable; treat it as empty so the
		// next Save replaces it.
		return map[string][]byte{}, nil
	}
	return doc, nil
}

func (r *fileIdentityRepository) write(doc map[string][]byte) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(r.path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".identity-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
