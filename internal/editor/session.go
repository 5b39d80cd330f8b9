// Package editor implements the in-memory document editing engine: an
// ordered block sequence per open page with structural operations, focus
// routing, and the slash-command state machine.
package editor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/halvard/ansuz/internal/block"
)

// Session owns the block sequence for one open page. It is not safe for
// concurrent use; a page has exactly one active editing session and the
// caller serializes access (see docsession).
type Session struct {
	pageID  int64
	blocks  []block.Block
	focused string // client key, empty when nothing focused
	slash   Slash
}

// NewSession builds a session from persisted records, assigning each
// block a fresh client key. A page with no stored blocks starts with a
// single empty paragraph.
func NewSession(pageID int64, records []block.Record) *Session {
	s := &Session{pageID: pageID}
	for _, r := range records {
		s.blocks = append(s.blocks, block.Block{
			ID:        r.ID,
			ClientKey: newClientKey(),
			Type:      r.Type,
			Content:   r.Content,
		})
	}
	if len(s.blocks) == 0 {
		s.blocks = []block.Block{{
			ClientKey: newClientKey(),
			Type:      block.TypeParagraph,
		}}
	}
	return s
}

func newClientKey() string {
	return uuid.NewString()
}

// PageID returns the page this session edits.
func (s *Session) PageID() int64 { return s.pageID }

// Len returns the number of blocks.
func (s *Session) Len() int { return len(s.blocks) }

// Blocks returns a copy of the block sequence in order.
func (s *Session) Blocks() []block.Block {
	out := make([]block.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// BlockAt returns the block at index.
func (s *Session) BlockAt(index int) (block.Block, error) {
	if index < 0 || index >= len(s.blocks) {
		return block.Block{}, fmt.Errorf("editor: index %d out of range [0,%d)", index, len(s.blocks))
	}
	return s.blocks[index], nil
}

// FocusedKey returns the client key of the focused block, or empty.
func (s *Session) FocusedKey() string { return s.focused }

// SetFocus moves focus to the block with the given client key.
func (s *Session) SetFocus(clientKey string) {
	if s.indexOf(clientKey) >= 0 {
		s.focused = clientKey
	}
}

func (s *Session) indexOf(clientKey string) int {
	for i, b := range s.blocks {
		if b.ClientKey == clientKey {
			return i
		}
	}
	return -1
}

// InsertAfter splices a new block of the given type immediately after
// index, with type-appropriate empty content, and focuses it. All blocks
// after the insertion point shift down by one; no identity is lost.
func (s *Session) InsertAfter(index int, typ string) (block.Block, error) {
	if !block.ValidType(typ) {
		return block.Block{}, fmt.Errorf("editor: unknown block type %q", typ)
	}
	if index < -1 || index >= len(s.blocks) {
		return block.Block{}, fmt.Errorf("editor: insert index %d out of range", index)
	}
	nb := block.Block{
		ClientKey: newClientKey(),
		Type:      typ,
		Content:   block.EmptyContent(typ),
	}
	at := index + 1
	s.blocks = append(s.blocks, block.Block{})
	copy(s.blocks[at+1:], s.blocks[at:])
	s.blocks[at] = nb
	s.focused = nb.ClientKey
	return nb, nil
}

// Delete removes the block with the given client key and routes focus to
// its predecessor. Whether the last remaining block may be deleted is the
// caller's policy; Delete itself permits it.
func (s *Session) Delete(clientKey string) bool {
	i := s.indexOf(clientKey)
	if i < 0 {
		return false
	}
	s.blocks = append(s.blocks[:i], s.blocks[i+1:]...)
	if s.focused == clientKey {
		s.focused = ""
		if len(s.blocks) > 0 {
			prev := i - 1
			if prev < 0 {
				prev = 0
			}
			s.focused = s.blocks[prev].ClientKey
		}
	}
	return true
}

// Backspace implements the empty-block Backspace policy: deleting via
// Backspace is a no-op on the first block, so a page always keeps at
// least one block.
func (s *Session) Backspace(clientKey string) bool {
	i := s.indexOf(clientKey)
	if i <= 0 {
		return false
	}
	return s.Delete(clientKey)
}

// Reorder moves the block at from to position to, shifting intervening
// blocks. The moved block's identity and content are unchanged, and the
// relative order of every other pair of blocks is preserved.
func (s *Session) Reorder(from, to int) error {
	n := len(s.blocks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("editor: reorder %d -> %d out of range [0,%d)", from, to, n)
	}
	if from == to {
		return nil
	}
	moved := s.blocks[from]
	s.blocks = append(s.blocks[:from], s.blocks[from+1:]...)
	rest := append(s.blocks[:to:to], moved)
	s.blocks = append(rest, s.blocks[to:]...)
	return nil
}

// Retype changes a block's type in place and resets its content to the
// new type's empty form. No content migration is attempted: retyping a
// paragraph with text into a table discards the text.
func (s *Session) Retype(clientKey, typ string) error {
	if !block.ValidType(typ) {
		return fmt.Errorf("editor: unknown block type %q", typ)
	}
	i := s.indexOf(clientKey)
	if i < 0 {
		return fmt.Errorf("editor: no block with key %q", clientKey)
	}
	s.blocks[i].Type = typ
	s.blocks[i].Content = block.EmptyContent(typ)
	return nil
}

// UpdateContent replaces a block's content without altering type or
// position, and feeds the focused block's content to the slash-command
// state machine.
func (s *Session) UpdateContent(clientKey, content string) error {
	i := s.indexOf(clientKey)
	if i < 0 {
		return fmt.Errorf("editor: no block with key %q", clientKey)
	}
	s.blocks[i].Content = content
	if clientKey == s.focused || s.focused == "" {
		s.focused = clientKey
		s.slash.Observe(content)
	}
	return nil
}

// Snapshot serializes the block sequence for a full-replace save. Order
// indexes are materialized from array positions, dense 0..n-1.
func (s *Session) Snapshot() []block.Record {
	out := make([]block.Record, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = block.Record{
			ID:         b.ID,
			PageID:     s.pageID,
			Type:       b.Type,
			Content:    b.Content,
			OrderIndex: i,
		}
	}
	return out
}

// TightWithPrevious reports whether the block at index renders with
// tight vertical spacing: a list item whose immediate predecessor has
// the same type. A presentation rule, not a data-model property.
func (s *Session) TightWithPrevious(index int) bool {
	if index <= 0 || index >= len(s.blocks) {
		return false
	}
	b := s.blocks[index]
	return block.IsListType(b.Type) && s.blocks[index-1].Type == b.Type
}
