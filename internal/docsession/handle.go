package docsession

import (
	"context"
	"sync"

	"github.com/halvard/ansuz/internal/autosave"
	"github.com/halvard/ansuz/internal/block"
	"github.com/halvard/ansuz/internal/editor"
	"github.com/halvard/ansuz/internal/models"
)

// Handle is the serialized access point to one page's editing session.
// The editing engine itself is single-owner; the handle's mutex makes
// that ownership safe across API requests and the scheduler goroutine.
type Handle struct {
	mu      sync.Mutex
	session *editor.Session
	meta    models.Metadata
	sched   *autosave.Scheduler
}

var _ autosave.Source = (*Handle)(nil)

// Metadata snapshots the current metadata tuple (scheduler fire path).
func (h *Handle) Metadata() models.Metadata {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.meta
}

// BlocksSnapshot serializes the block sequence (scheduler fire path).
func (h *Handle) BlocksSnapshot() []block.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Snapshot()
}

// View is the session state returned to clients after each operation.
type View struct {
	PageID     int64           `json:"pageId"`
	Blocks     []block.Block   `json:"blocks"`
	FocusedKey string          `json:"focusedKey"`
	SaveStatus autosave.Status `json:"saveStatus"`
	Slash      *SlashView      `json:"slash,omitempty"`
}

// SlashView is the open slash menu: filtered options plus selection.
type SlashView struct {
	Query         string               `json:"query"`
	SelectedIndex int                  `json:"selectedIndex"`
	Options       []editor.SlashOption `json:"options"`
}

// View snapshots the session for a client response.
func (h *Handle) View() View {
	h.mu.Lock()
	v := h.viewLocked()
	h.mu.Unlock()
	v.SaveStatus = h.sched.Status()
	return v
}

// viewLocked snapshots everything but the save status. The scheduler
// calls back into the source under its own loop, so asking it for
// status while holding mu would deadlock; callers fill SaveStatus
// after unlocking.
func (h *Handle) viewLocked() View {
	v := View{
		PageID:     h.session.PageID(),
		Blocks:     h.session.Blocks(),
		FocusedKey: h.session.FocusedKey(),
	}
	if sl := h.session.Slash(); sl.Active() {
		v.Slash = &SlashView{
			Query:         sl.Query(),
			SelectedIndex: sl.SelectedIndex(),
			Options:       sl.Filtered(),
		}
	}
	return v
}

// SetMetadata applies a metadata edit and restarts the fast-save window.
func (h *Handle) SetMetadata(meta models.Metadata) {
	h.mu.Lock()
	h.meta = meta
	h.mu.Unlock()
	h.sched.NotifyMetaChanged()
}

// InsertAfter adds a block after index and restarts the blocks window.
func (h *Handle) InsertAfter(index int, typ string) (View, error) {
	h.mu.Lock()
	_, err := h.session.InsertAfter(index, typ)
	if err != nil {
		h.mu.Unlock()
		return View{}, err
	}
	v := h.viewLocked()
	h.mu.Unlock()
	h.sched.NotifyBlocksChanged()
	v.SaveStatus = h.sched.Status()
	return v, nil
}

// Delete removes a block by client key.
func (h *Handle) Delete(clientKey string) View {
	h.mu.Lock()
	changed := h.session.Delete(clientKey)
	v := h.viewLocked()
	h.mu.Unlock()
	if changed {
		h.sched.NotifyBlocksChanged()
	}
	v.SaveStatus = h.sched.Status()
	return v
}

// Backspace applies the empty-block Backspace policy (no-op on the
// first block).
func (h *Handle) Backspace(clientKey string) View {
	h.mu.Lock()
	changed := h.session.Backspace(clientKey)
	v := h.viewLocked()
	h.mu.Unlock()
	if changed {
		h.sched.NotifyBlocksChanged()
	}
	v.SaveStatus = h.sched.Status()
	return v
}

// Reorder moves a block between positions.
func (h *Handle) Reorder(from, to int) (View, error) {
	h.mu.Lock()
	if err := h.session.Reorder(from, to); err != nil {
		h.mu.Unlock()
		return View{}, err
	}
	v := h.viewLocked()
	h.mu.Unlock()
	h.sched.NotifyBlocksChanged()
	v.SaveStatus = h.sched.Status()
	return v, nil
}

// Retype changes a block's type, resetting content to the empty form.
func (h *Handle) Retype(clientKey, typ string) (View, error) {
	h.mu.Lock()
	if err := h.session.Retype(clientKey, typ); err != nil {
		h.mu.Unlock()
		return View{}, err
	}
	v := h.viewLocked()
	h.mu.Unlock()
	h.sched.NotifyBlocksChanged()
	v.SaveStatus = h.sched.Status()
	return v, nil
}

// UpdateContent replaces a block's content and feeds the slash machine.
func (h *Handle) UpdateContent(clientKey, content string) (View, error) {
	h.mu.Lock()
	if err := h.session.UpdateContent(clientKey, content); err != nil {
		h.mu.Unlock()
		return View{}, err
	}
	v := h.viewLocked()
	h.mu.Unlock()
	h.sched.NotifyBlocksChanged()
	v.SaveStatus = h.sched.Status()
	return v, nil
}

// SetFocus moves focus to a block.
func (h *Handle) SetFocus(clientKey string) View {
	h.mu.Lock()
	h.session.SetFocus(clientKey)
	v := h.viewLocked()
	h.mu.Unlock()
	v.SaveStatus = h.sched.Status()
	return v
}

// SlashMove steps the slash-menu selection ("up" or "down").
func (h *Handle) SlashMove(dir string) View {
	h.mu.Lock()
	if dir == "up" {
		h.session.Slash().MoveUp()
	} else {
		h.session.Slash().MoveDown()
	}
	v := h.viewLocked()
	h.mu.Unlock()
	v.SaveStatus = h.sched.Status()
	return v
}

// SlashCommit applies the highlighted option to the focused block.
func (h *Handle) SlashCommit() View {
	h.mu.Lock()
	committed := h.session.CommitSlash()
	v := h.viewLocked()
	h.mu.Unlock()
	if committed {
		h.sched.NotifyBlocksChanged()
	}
	v.SaveStatus = h.sched.Status()
	return v
}

// SlashCancel closes the slash menu.
func (h *Handle) SlashCancel() View {
	h.mu.Lock()
	h.session.CancelSlash()
	v := h.viewLocked()
	h.mu.Unlock()
	v.SaveStatus = h.sched.Status()
	return v
}

// Status reports the session's save status.
func (h *Handle) Status() autosave.Status {
	return h.sched.Status()
}

// Flush forces pending saves through and waits for them.
func (h *Handle) Flush(ctx context.Context) error {
	return h.sched.Flush(ctx)
}
