package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/media"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedObject(s *MockMediaStore, ref string, mod time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ref] = media.Object{Ref: ref, Size: 1, ModTime: mod}
	s.data[ref] = []byte{1}
}

func newTestReconciler(repo *MockProductRepo, store *MockMediaStore, now time.Time) *reconcileService {
	svc := NewReconcileService(repo, store).(*reconcileService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestReconcileRemovesOnlyOldOrphans(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &MockProductRepo{}
	store := newMockStore()
	svc := NewProductService(repo, store)

	linked, err := svc.CreateListing(context.Background(),
		ListingInput{Name: "Bike", Price: "1"},
		&Upload{Filename: "bike.png", Body: strings.NewReader("x")})
	require.NoError(t, err)
	// age the linked object so only the link protects it
	seedObject(store, *linked.ImageURL, now.Add(-72*time.Hour))

	seedObject(store, "1700000000000-aaaaaaaa-old.png", now.Add(-48*time.Hour))
	seedObject(store, "1700000000000-bbbbbbbb-fresh.png", now.Add(-time.Hour))

	r := newTestReconciler(repo, store, now)
	report, err := r.Reconcile(context.Background(), ReconcileOptions{Grace: 24 * time.Hour})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Referenced)
	assert.Equal(t, 1, report.Kept)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, []string{"1700000000000-aaaaaaaa-old.png"}, report.Orphans)
	assert.Equal(t, []string{"1700000000000-aaaaaaaa-old.png"}, store.deleted)

	objs, _ := store.List(context.Background())
	assert.Len(t, objs, 2)
}

func TestReconcileKeepsLegacyPathAndURLRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &MockProductRepo{}
	store := newMockStore()
	old := now.Add(-72 * time.Hour)

	for _, stored := range []string{
		"/uploads/1700000000000-bike.png",
		"https://storage.googleapis.com/shop-media/uploads/1700000000001-aaaaaaaa-lamp.png",
		"http://localhost:8080/uploads/1700000000002-chair%20red.png?v=2",
	} {
		v := stored
		require.NoError(t, repo.Create(context.Background(), &model.Product{Name: "legacy", ImageURL: &v}))
	}
	seedObject(store, "1700000000000-bike.png", old)
	seedObject(store, "1700000000001-aaaaaaaa-lamp.png", old)
	seedObject(store, "1700000000002-chair red.png", old)
	seedObject(store, "1700000000003-orphan.png", old)

	r := newTestReconciler(repo, store, now)
	report, err := r.Reconcile(context.Background(), ReconcileOptions{Grace: 24 * time.Hour})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 3, report.Referenced)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []string{"1700000000003-orphan.png"}, store.deleted)
}

func TestReconcileDryRunDeletesNothing(t *testing.T) {
	now := time.Now()
	repo := &MockProductRepo{}
	store := newMockStore()
	seedObject(store, "1-aaaaaaaa-a.png", now.Add(-48*time.Hour))
	seedObject(store, "2-bbbbbbbb-b.png", now.Add(-48*time.Hour))

	r := newTestReconciler(repo, store, now)
	report, err := r.Reconcile(context.Background(), ReconcileOptions{Grace: time.Hour, DryRun: true})
	require.NoError(t, err)
	assert.Len(t, report.Orphans, 2)
	assert.Equal(t, 0, report.Removed)
	assert.Empty(t, store.deleted)
}

func TestReconcileCountsDeleteFailures(t *testing.T) {
	now := time.Now()
	repo := &MockProductRepo{}
	store := newMockStore()
	seedObject(store, "1-aaaaaaaa-a.png", now.Add(-48*time.Hour))
	store.DeleteErr = errors.New("permission denied")

	r := newTestReconciler(repo, store, now)
	report, err := r.Reconcile(context.Background(), ReconcileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Removed)
}

func TestReconcileAbortsWhenRefsUnavailable(t *testing.T) {
	now := time.Now()
	repo := &MockProductRepo{ListErr: errors.New("db down")}
	store := newMockStore()
	seedObject(store, "1-aaaaaaaa-a.png", now.Add(-48*time.Hour))

	r := newTestReconciler(repo, store, now)
	_, err := r.Reconcile(context.Background(), ReconcileOptions{})
	assert.ErrorIs(t, err, repo.ListErr)
	assert.Empty(t, store.deleted)
}

type countingReconciler struct {
	calls chan struct{}
}

func (c *countingReconciler) Reconcile(ctx context.Context, opts ReconcileOptions) (ReconcileReport, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return ReconcileReport{}, nil
}

func TestRunReconcilerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &countingReconciler{calls: make(chan struct{}, 1)}
	done := make(chan struct{})
	go func() {
		RunReconciler(ctx, rec, 5*time.Millisecond, ReconcileOptions{})
		close(done)
	}()

	select {
	case <-rec.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler never ran")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestRunReconcilerDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		RunReconciler(context.Background(), &countingReconciler{calls: make(chan struct{}, 1)}, 0, ReconcileOptions{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("zero interval should return immediately")
	}
}
