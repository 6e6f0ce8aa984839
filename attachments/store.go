package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStore writes accepted uploads into a directory served under URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

// NewLocalStore returns a LocalStore; maxBytes <= 0 selects DefaultMaxBytes.
func NewLocalStore(dir, urlPrefix string, maxBytes int64) *LocalStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &LocalStore{Dir: dir, URLPrefix: urlPrefix, MaxBytes: maxBytes}
}

// Save stores a under baseName plus its canonical extension and returns the
// path to persist on the post, relative to the site root (e.g. "uploads/Ab3dE.png").
// The file is synced to disk before Save returns. A name already taken gets a
// random suffix instead of being overwritten.
func (s *LocalStore) Save(ctx context.Context, baseName string, a *Accepted) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	base := safeBase(baseName)
	name := base + a.Ext
	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		name = base + "-" + uuid.NewString()[:8] + a.Ext
		f, err = os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	dst := filepath.Join(s.Dir, name)

	discard := func() {
		_ = f.Close()
		_ = os.Remove(dst)
	}

	lr := &io.LimitedReader{R: a.Body(), N: s.MaxBytes + 1}
	written, err := io.Copy(f, lr)
	if err != nil {
		discard()
		return "", reject(a.Filename, "file is unreadable: %v", err)
	}
	if written > s.MaxBytes {
		discard()
		return "", reject(a.Filename, "file exceeds %d bytes", s.MaxBytes)
	}
	if err := f.Sync(); err != nil {
		discard()
		return "", fmt.Errorf("sync upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return s.storedPath(name), nil
}

// Remove deletes a file previously returned by Save.
func (s *LocalStore) Remove(stored string) error {
	name := path.Base(stored)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Stale lists the stored paths of files last modified before cutoff.
func (s *LocalStore) Stale(cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload directory: %w", err)
	}
	var stale []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			stale = append(stale, s.storedPath(e.Name()))
		}
	}
	return stale, nil
}

func (s *LocalStore) storedPath(name string) string {
	prefix := strings.Trim(s.URLPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// safeBase keeps [A-Za-z0-9_-] so a base name can never escape the directory.
func safeBase(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return uuid.NewString()
	}
	return b.String()
}
