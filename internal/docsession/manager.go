// Package docsession manages server-held editing sessions: one document
// editing engine plus one autosave scheduler per open page.
package docsession

import (
	"context"
	"sync"

	"github.com/halvard/ansuz/internal/autosave"
	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/editor"
	"github.com/halvard/ansuz/internal/models"
	"github.com/halvard/ansuz/internal/pageservice"
)

// Manager hands out editing sessions and guarantees at most one active
// session per page.
type Manager struct {
	svc           *pageservice.Service
	autosaveOpts  autosave.Options
	onBlocksSaved func(pageID int64)

	mu       sync.Mutex
	sessions map[int64]*Handle
}

// Options configures the manager's schedulers.
type Options struct {
	Autosave autosave.Options

	// OnBlocksSaved, if non-nil, runs after every accepted blocks save
	// (used to publish SSE events).
	OnBlocksSaved func(pageID int64)
}

// NewManager creates a session manager backed by the page service.
func NewManager(svc *pageservice.Service, opts Options) *Manager {
	return &Manager{
		svc:           svc,
		autosaveOpts:  opts.Autosave,
		onBlocksSaved: opts.OnBlocksSaved,
		sessions:      make(map[int64]*Handle),
	}
}

// Open returns the active session for a page, loading state from the
// store and starting a scheduler when none exists yet.
func (m *Manager) Open(ctx context.Context, pageID int64) (*Handle, error) {
	m.mu.Lock()
	if h, ok := m.sessions[pageID]; ok {
		m.mu.Unlock()
		return h, nil
	}
	m.mu.Unlock()

	// Load outside the lock; racing opens resolve below.
	detail, err := m.svc.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		session: editor.NewSession(pageID, detail.Blocks),
		meta: models.Metadata{
			Title:    detail.Title,
			Category: detail.Category,
			Deadline: detail.Deadline,
			Tags:     detail.Tags,
		},
	}
	opts := m.autosaveOpts
	opts.Baseline = h.meta
	opts.BaseSeq = detail.BlocksSeq
	h.sched = autosave.New(pageID, h, saverFunc{svc: m.svc, onSaved: m.onBlocksSaved}, opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[pageID]; ok {
		h.sched.Close()
		return existing, nil
	}
	m.sessions[pageID] = h
	return h, nil
}

// Get returns the active session for a page, if any.
func (m *Manager) Get(pageID int64) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.sessions[pageID]
	return h, ok
}

// Close ends a page's session. Scheduling stops; an in-flight save
// finishes on its own.
func (m *Manager) Close(pageID int64) {
	m.mu.Lock()
	h, ok := m.sessions[pageID]
	delete(m.sessions, pageID)
	m.mu.Unlock()
	if ok {
		h.sched.Close()
	}
}

// CloseAll flushes and closes every session (shutdown path).
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Handle, 0, len(m.sessions))
	for _, h := range m.sessions {
		all = append(all, h)
	}
	m.sessions = make(map[int64]*Handle)
	m.mu.Unlock()

	for _, h := range all {
		_ = h.sched.Flush(ctx)
		h.sched.Close()
	}
}

// saverFunc adapts the page service to the scheduler's Saver contract
// and fires the saved callback on accepted block saves.
type saverFunc struct {
	svc     *pageservice.Service
	onSaved func(pageID int64)
}

func (s saverFunc) SaveMetadata(ctx context.Context, pageID int64, meta models.Metadata) error {
	return s.svc.SaveMetadata(ctx, pageID, meta)
}

func (s saverFunc) SaveBlocks(ctx context.Context, pageID int64, blocks []block.Record, seq int64) error {
	err := s.svc.SaveBlocks(ctx, pageID, blocks, seq)
	if err == nil && s.onSaved != nil {
		s.onSaved(pageID)
	}
	return err
}
