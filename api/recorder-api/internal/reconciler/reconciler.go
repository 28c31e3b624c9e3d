// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_reconciler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	internal_assembler "github.com/murmurai/api/recorder-api/internal/assembler"
	internal_store "github.com/murmurai/api/recorder-api/internal/store"
	internal_transcription "github.com/murmurai/api/recorder-api/internal/transcription"
	"github.com/murmurai/pkg/commons"
)

const resubmitConcurrency = 4

// Processor runs one transcription submission to its terminal outcome.
type Processor interface {
	Process(ctx context.Context, segmentId, audioPath string) internal_transcription.Outcome
}

// Reconciler drains segments parked as queued while the device was offline.
// It reacts to offline-to-online transitions and can be refreshed manually;
// either way each queued segment gets exactly one fresh submission per
// sweep.
type Reconciler struct {
	logger    commons.Logger
	store     internal_store.Store
	worker    Processor
	assembler *internal_assembler.Assembler

	mu      sync.Mutex
	running bool
}

func NewReconciler(
	logger commons.Logger,
	store internal_store.Store,
	worker Processor,
	assembler *internal_assembler.Assembler,
) *Reconciler {
	return &Reconciler{
		logger:    logger,
		store:     store,
		worker:    worker,
		assembler: assembler,
	}
}

// OnConnectivityChange is the monitor subscription hook. Going online kicks
// off a sweep in the background; going offline does nothing.
func (r *Reconciler) OnConnectivityChange(online bool) {
	if !online {
		return
	}
	go func() {
		if err := r.Refresh(context.Background()); err != nil {
			r.logger.Warnf("reconciler: sweep after reconnect failed: %v", err)
		}
	}()
}

// Refresh scans for queued segments and resubmits them concurrently. An
// empty scan is a no-op; a sweep already in flight absorbs the trigger.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	segments, err := r.store.QueuedSegments(ctx)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	r.logger.Infof("reconciler: resubmitting %d queued segments", len(segments))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resubmitConcurrency)
	for _, segment := range segments {
		segment := segment
		g.Go(func() error {
			// Claim the row first; a competing resolution means someone else
			// already owns this segment.
			if err := r.store.MarkSegmentProcessing(ctx, segment.Id); err != nil {
				r.logger.Debugf("reconciler: skipping segment %s: %v", segment.Id, err)
				return nil
			}
			outcome := r.worker.Process(ctx, segment.Id, segment.FilePath)
			if err := r.assembler.SegmentResolved(ctx, segment.RecordingId, outcome); err != nil {
				r.logger.Warnf("reconciler: outcome for segment %s not applied: %v", segment.Id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
