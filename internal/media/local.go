package media

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxNameAttempts = 3

// LocalStore keeps uploads in a directory served statically under baseURL.
type LocalStore struct {
	root    string
	baseURL string
	now     func() time.Time
	token   func() string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &WriteError{Op: "mkdir", Err: err}
	}
	return &LocalStore{
		root:    root,
		baseURL: baseURL,
		now:     time.Now,
		token:   randomToken,
	}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(ctx context.Context, r io.Reader, originalName string) (string, error) {
	body, _, err := sniff(r)
	if err != nil {
		return "", err
	}

	// O_EXCL makes a name clash fail instead of overwriting; pick a new
	// token and try again.
	var (
		f   *os.File
		ref string
	)
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		ref = newReference(s.now(), s.token(), originalName)
		f, err = os.OpenFile(filepath.Join(s.root, ref), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", &WriteError{Ref: ref, Op: "create", Err: err}
		}
	}
	if f == nil {
		return "", &WriteError{Ref: ref, Op: "create", Err: err}
	}

	dst := f.Name()
	if _, err := io.Copy(f, ctxReader{ctx: ctx, r: body}); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", &WriteError{Ref: ref, Op: "write", Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", &WriteError{Ref: ref, Op: "sync", Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", &WriteError{Ref: ref, Op: "close", Err: err}
	}
	return ref, nil
}

// Delete removes ref. A missing file is not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if !ValidReference(ref) {
		return ErrInvalidReference
	}
	if err := os.Remove(filepath.Join(s.root, ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	objs := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		objs = append(objs, Object{Ref: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	return objs, nil
}

func (s *LocalStore) URL(ref string) string {
	return resolve(s.baseURL, ref)
}
