// Package autosave debounces persistence of editing-session state to the
// page store over two independent channels: a fast metadata channel and a
// slower full-block-replace channel.
package autosave

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/models"
)

// Default quiet periods before a channel fires.
const (
	DefaultMetaDelay   = 1000 * time.Millisecond
	DefaultBlocksDelay = 2000 * time.Millisecond

	saveTimeout = 10 * time.Second
)

// Status is the only user-visible save state.
type Status string

const (
	StatusSaved   Status = "saved"
	StatusSyncing Status = "syncing"
)

// Source supplies snapshots of the editing state at fire time. Both
// methods must be safe to call from the scheduler goroutine.
type Source interface {
	Metadata() models.Metadata
	BlocksSnapshot() []block.Record
}

// Saver persists snapshots. SaveBlocks carries a monotonic sequence
// token; the store rejects a replace whose token is not newer than the
// last accepted one, so two overlapping saves completing out of send
// order cannot leave stale content behind.
type Saver interface {
	SaveMetadata(ctx context.Context, pageID int64, meta models.Metadata) error
	SaveBlocks(ctx context.Context, pageID int64, blocks []block.Record, seq int64) error
}

// Options configures a Scheduler.
type Options struct {
	MetaDelay   time.Duration
	BlocksDelay time.Duration

	// Baseline is the metadata tuple last confirmed loaded from the
	// store; the meta channel fires only when the current tuple differs.
	Baseline models.Metadata

	// BaseSeq seeds the blocks sequence counter from the page's last
	// accepted save.
	BaseSeq int64
}

type saveResult struct {
	meta models.Metadata
	seq  int64
	err  error
}

// Scheduler owns the debounce timers and save lifecycle for one page
// session.
//
// Concurrency model: a single event loop goroutine owns all mutable
// state (timers, baselines, in-flight flags). Public methods talk to the
// loop through channels, so no mutexes are required. Saves themselves
// run in short-lived goroutines and report back over result channels;
// at most one save per channel is in flight at any time.
type Scheduler struct {
	pageID      int64
	source      Source
	saver       Saver
	metaDelay   time.Duration
	blocksDelay time.Duration
	baseline    models.Metadata
	baseSeq     int64

	metaCh   chan struct{}
	blocksCh chan struct{}
	statusCh chan chan Status
	flushCh  chan chan struct{}

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New creates and starts a scheduler for the given page.
func New(pageID int64, source Source, saver Saver, opts Options) *Scheduler {
	if opts.MetaDelay <= 0 {
		opts.MetaDelay = DefaultMetaDelay
	}
	if opts.BlocksDelay <= 0 {
		opts.BlocksDelay = DefaultBlocksDelay
	}

	s := &Scheduler{
		pageID:      pageID,
		source:      source,
		saver:       saver,
		metaDelay:   opts.MetaDelay,
		blocksDelay: opts.BlocksDelay,
		baseline:    opts.Baseline,
		baseSeq:     opts.BaseSeq,
		metaCh:      make(chan struct{}, 1),
		blocksCh:    make(chan struct{}, 1),
		statusCh:    make(chan chan Status),
		flushCh:     make(chan chan struct{}),
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Scheduler) run() {
	defer close(s.stopped)

	var (
		metaTimer, blocksTimer *time.Timer
		metaFire, blocksFire   <-chan time.Time

		metaInflight, blocksInflight bool
		metaDirty, blocksDirty       bool

		seq = s.baseSeq

		metaDone   = make(chan saveResult, 1)
		blocksDone = make(chan saveResult, 1)

		waiters []chan struct{}
	)

	armMeta := func(d time.Duration) {
		if metaTimer == nil {
			metaTimer = time.NewTimer(d)
			metaFire = metaTimer.C
		} else {
			metaTimer.Reset(d)
		}
		metaDirty = true
	}
	armBlocks := func(d time.Duration) {
		if blocksTimer == nil {
			blocksTimer = time.NewTimer(d)
			blocksFire = blocksTimer.C
		} else {
			blocksTimer.Reset(d)
		}
		blocksDirty = true
	}

	startMetaSave := func() {
		snap := s.source.Metadata()
		metaDirty = false
		if snap == s.baseline {
			return
		}
		metaInflight = true
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			err := s.saver.SaveMetadata(ctx, s.pageID, snap)
			metaDone <- saveResult{meta: snap, err: err}
		}()
	}
	startBlocksSave := func() {
		snap := s.source.BlocksSnapshot()
		blocksDirty = false
		if len(snap) == 0 {
			return
		}
		seq++
		blocksInflight = true
		go func(sendSeq int64) {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			err := s.saver.SaveBlocks(ctx, s.pageID, snap, sendSeq)
			blocksDone <- saveResult{seq: sendSeq, err: err}
		}(seq)
	}

	idle := func() bool {
		return !metaInflight && !blocksInflight && !metaDirty && !blocksDirty
	}
	notifyWaiters := func() {
		if !idle() {
			return
		}
		for _, w := range waiters {
			close(w)
		}
		waiters = nil
	}

	for {
		select {
		case <-s.stopCh:
			// In-flight saves are not cancelled; only further
			// scheduling stops.
			if metaTimer != nil {
				metaTimer.Stop()
			}
			if blocksTimer != nil {
				blocksTimer.Stop()
			}
			for _, w := range waiters {
				close(w)
			}
			return

		case <-s.metaCh:
			armMeta(s.metaDelay)

		case <-s.blocksCh:
			armBlocks(s.blocksDelay)

		case <-metaFire:
			if metaInflight {
				// A save is already running: extend the window for
				// the next one instead of piling up.
				armMeta(s.metaDelay)
				continue
			}
			startMetaSave()
			notifyWaiters()

		case <-blocksFire:
			if blocksInflight {
				armBlocks(s.blocksDelay)
				continue
			}
			startBlocksSave()
			notifyWaiters()

		case res := <-metaDone:
			metaInflight = false
			if res.err == nil {
				s.baseline = res.meta
				if metaDirty && len(waiters) > 0 {
					// A flush stopped the timer while this save
					// was in flight; start the pending one now
					// instead of waiting for a timer that will
					// never fire.
					startMetaSave()
				}
			} else {
				// Failed saves are retried by the next debounce
				// cycle; the snapshot design makes retries safe.
				armMeta(s.metaDelay)
			}
			notifyWaiters()

		case res := <-blocksDone:
			blocksInflight = false
			if res.err != nil {
				armBlocks(s.blocksDelay)
			} else if blocksDirty && len(waiters) > 0 {
				startBlocksSave()
			}
			notifyWaiters()

		case resp := <-s.statusCh:
			if idle() {
				resp <- StatusSaved
			} else {
				resp <- StatusSyncing
			}

		case w := <-s.flushCh:
			// Fire both channels immediately and reply once idle.
			if metaTimer != nil {
				metaTimer.Stop()
			}
			if blocksTimer != nil {
				blocksTimer.Stop()
			}
			if metaDirty && !metaInflight {
				startMetaSave()
			}
			if blocksDirty && !blocksInflight {
				startBlocksSave()
			}
			if idle() {
				close(w)
			} else {
				waiters = append(waiters, w)
			}
		}
	}
}

// NotifyMetaChanged restarts the metadata debounce window.
func (s *Scheduler) NotifyMetaChanged() {
	s.notify(s.metaCh)
}

// NotifyBlocksChanged restarts the blocks debounce window.
func (s *Scheduler) NotifyBlocksChanged() {
	s.notify(s.blocksCh)
}

func (s *Scheduler) notify(ch chan struct{}) {
	if s.closed.Load() {
		return
	}
	select {
	case ch <- struct{}{}:
	case <-s.stopped:
	default:
		// A notification is already queued; the loop will re-arm.
	}
}

// Status returns "saved" when nothing is pending or in flight, otherwise
// "syncing".
func (s *Scheduler) Status() Status {
	if s.closed.Load() {
		return StatusSaved
	}
	resp := make(chan Status, 1)
	select {
	case s.statusCh <- resp:
	case <-s.stopped:
		return StatusSaved
	}
	select {
	case st := <-resp:
		return st
	case <-s.stopped:
		return StatusSaved
	}
}

// Flush forces any pending state to save immediately and blocks until
// both channels are idle or ctx expires.
func (s *Scheduler) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return nil
	}
	w := make(chan struct{})
	select {
	case s.flushCh <- w:
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops scheduling further saves. An in-flight save keeps running
// to completion; its result is discarded.
func (s *Scheduler) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}
