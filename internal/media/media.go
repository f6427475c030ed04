// Package media stores uploaded listing images under generated names.
//
// A reference is the generated object name. It is what the catalog
// persists; URL turns it into something a client can fetch.
package media

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyPayload     = errors.New("media: empty payload")
	ErrWriteFailure     = errors.New("media: write failure")
	ErrInvalidReference = errors.New("media: invalid reference")
)

// WriteError is returned for any I/O failure while storing bytes.
// It matches ErrWriteFailure as well as the underlying cause.
type WriteError struct {
	Ref string
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("media %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("media %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrWriteFailure, e.Err}
}

type Object struct {
	Ref     string
	Size    int64
	ModTime time.Time
}

type Store interface {
	Put(ctx context.Context, r io.Reader, originalName string) (string, error)
	Delete(ctx context.Context, ref string) error
	List(ctx context.Context) ([]Object, error)
	URL(ref string) string
}

const (
	maxNameLen  = 100
	sniffLen    = 512
	tokenLength = 4
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces a client supplied file name to a safe base name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "..", "")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._")
	if len(name) > maxNameLen {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:maxNameLen-len(ext)] + ext
	}
	if name == "" {
		return "upload"
	}
	return name
}

func newReference(now time.Time, token, originalName string) string {
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), token, SanitizeName(originalName))
}

func randomToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:tokenLength])
}

// ValidReference reports whether ref is a bare object name.
func ValidReference(ref string) bool {
	if ref == "" || ref == "." || strings.Contains(ref, "..") {
		return false
	}
	return !strings.ContainsAny(ref, `/\`)
}

// ReferenceOf extracts the object name from a stored image value. Rows
// may hold a bare reference, a path such as /uploads/<name>, or a full
// URL; all of them end in the object name. It returns "" when no valid
// reference can be found.
func ReferenceOf(stored string) string {
	v := strings.TrimSpace(stored)
	if i := strings.IndexAny(v, "?#"); i >= 0 {
		v = v[:i]
	}
	v = strings.ReplaceAll(v, `\`, "/")
	if i := strings.LastIndex(v, "/"); i >= 0 {
		v = v[i+1:]
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		v = unescaped
	}
	if !ValidReference(v) {
		return ""
	}
	return v
}

// resolve joins base and ref. Values that are already URLs or absolute
// paths are returned unchanged.
func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + ref
}

// sniff buffers the head of r. It fails with ErrEmptyPayload when r
// yields no bytes at all.
func sniff(r io.Reader) (*bufio.Reader, []byte, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if len(head) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyPayload
		}
		return nil, nil, &WriteError{Op: "read", Err: err}
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, nil, &WriteError{Op: "read", Err: err}
	}
	return br, head, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
