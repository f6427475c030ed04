package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore keeps uploads as objects under prefix in a Cloud Storage bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	baseURL string
	now     func() time.Time
	token   func() string
}

func NewGCSStore(ctx context.Context, bucket, prefix, baseURL string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.TrimSuffix(prefix, "/"))
	}
	return &GCSStore{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		baseURL: baseURL,
		now:     time.Now,
		token:   randomToken,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, r io.Reader, originalName string) (string, error) {
	body, head, err := sniff(r)
	if err != nil {
		return "", err
	}

	ref := newReference(s.now(), s.token(), originalName)
	obj := s.client.Bucket(s.bucket).Object(s.prefix + ref).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = mimetype.Detect(head).String()
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": uuid.NewString(),
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", &WriteError{Ref: ref, Op: "write", Err: err}
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return "", &WriteError{Ref: ref, Op: "create", Err: fmt.Errorf("object already exists: %w", err)}
		}
		return "", &WriteError{Ref: ref, Op: "close", Err: err}
	}
	return ref, nil
}

func (s *GCSStore) Delete(ctx context.Context, ref string) error {
	if !ValidReference(ref) {
		return ErrInvalidReference
	}
	err := s.client.Bucket(s.bucket).Object(s.prefix + ref).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context) ([]Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var objs []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		ref := strings.TrimPrefix(attrs.Name, s.prefix)
		if !ValidReference(ref) {
			continue
		}
		objs = append(objs, Object{Ref: ref, Size: attrs.Size, ModTime: attrs.Updated})
	}
	return objs, nil
}

func (s *GCSStore) URL(ref string) string {
	return resolve(s.baseURL, ref)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
