package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/media"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"gorm.io/gorm"
)

type MockProductRepo struct {
	mu        sync.Mutex
	products  []model.Product
	nextID    uint64
	CreateErr error
	ListErr   error
	creates   int
}

func (r *MockProductRepo) Create(ctx context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.products = append(r.products, *p)
	return nil
}

func (r *MockProductRepo) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.products {
		if r.products[i].ID == id {
			p := r.products[i]
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MockProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Category != "" && (p.Category == nil || *p.Category != filter.Category) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockProductRepo) ListImageRefs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var refs []string
	for _, p := range r.products {
		if p.ImageURL != nil {
			refs = append(refs, *p.ImageURL)
		}
	}
	return refs, nil
}

func (r *MockProductRepo) rowCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products)
}

type MockMediaStore struct {
	mu        sync.Mutex
	objects   map[string]media.Object
	data      map[string][]byte
	seq       int
	PutErr    error
	DeleteErr error
	puts      int
	deleted   []string
}

func newMockStore() *MockMediaStore {
	return &MockMediaStore{objects: map[string]media.Object{}, data: map[string][]byte{}}
}

func (s *MockMediaStore) Put(ctx context.Context, r io.Reader, originalName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.PutErr != nil {
		return "", s.PutErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", media.ErrEmptyPayload
	}
	s.seq++
	ref := fmt.Sprintf("%d-token-%s", s.seq, media.SanitizeName(originalName))
	s.objects[ref] = media.Object{Ref: ref, Size: int64(len(b)), ModTime: time.Now()}
	s.data[ref] = b
	return ref, nil
}

func (s *MockMediaStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if !media.ValidReference(ref) {
		return errors.New("bad ref")
	}
	delete(s.objects, ref)
	delete(s.data, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *MockMediaStore) List(ctx context.Context) ([]media.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]media.Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}

func (s *MockMediaStore) URL(ref string) string {
	return "/uploads/" + ref
}

func (s *MockMediaStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
