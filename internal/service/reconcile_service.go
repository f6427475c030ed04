package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/media"
	"github.com/shinyyama/marketplace-backend/internal/repository"
)

type ReconcileOptions struct {
	// Grace protects fresh uploads whose product row may not be
	// committed yet.
	Grace  time.Duration
	DryRun bool
}

type ReconcileReport struct {
	Scanned    int      `json:"scanned"`
	Referenced int      `json:"referenced"`
	Kept       int      `json:"kept"`
	Removed    int      `json:"removed"`
	Failed     int      `json:"failed"`
	Orphans    []string `json:"orphans"`
}

// ReconcileService removes stored media that no product references.
type ReconcileService interface {
	Reconcile(ctx context.Context, opts ReconcileOptions) (ReconcileReport, error)
}

type reconcileService struct {
	repo  repository.ProductRepository
	store media.Store
	now   func() time.Time
}

func NewReconcileService(repo repository.ProductRepository, store media.Store) ReconcileService {
	return &reconcileService{repo: repo, store: store, now: time.Now}
}

func (s *reconcileService) Reconcile(ctx context.Context, opts ReconcileOptions) (ReconcileReport, error) {
	var report ReconcileReport

	// Media is listed before rows so an upload linked in between is seen
	// as referenced.
	objs, err := s.store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list media: %w", err)
	}
	refs, err := s.repo.ListImageRefs(ctx)
	if err != nil {
		return report, fmt.Errorf("list image refs: %w", err)
	}
	// Older rows store paths or full URLs; match on the object name.
	linked := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		if ref := media.ReferenceOf(r); ref != "" {
			linked[ref] = struct{}{}
		}
	}

	cutoff := s.now().Add(-opts.Grace)
	for _, obj := range objs {
		report.Scanned++
		if _, ok := linked[obj.Ref]; ok {
			report.Referenced++
			continue
		}
		if obj.ModTime.After(cutoff) {
			report.Kept++
			continue
		}
		report.Orphans = append(report.Orphans, obj.Ref)
		if opts.DryRun {
			continue
		}
		if err := s.store.Delete(ctx, obj.Ref); err != nil {
			report.Failed++
			log.Printf("[reconcile] ref=%s stage=delete_fail err=%v", obj.Ref, err)
			continue
		}
		report.Removed++
	}
	log.Printf("[reconcile] stage=done scanned=%d referenced=%d kept=%d removed=%d failed=%d dry_run=%v",
		report.Scanned, report.Referenced, report.Kept, report.Removed, report.Failed, opts.DryRun)
	return report, nil
}

// RunReconciler calls Reconcile every interval until ctx is done.
func RunReconciler(ctx context.Context, svc ReconcileService, interval time.Duration, opts ReconcileOptions) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Reconcile(ctx, opts); err != nil {
				log.Printf("[reconcile] stage=run_fail err=%v", err)
			}
		}
	}
}
