// Package wikilink resolves [[Title]] references against a snapshot of
// known page titles.
package wikilink

import (
	"strings"

	"github.com/halvard/ansuz/internal/models"
)

// Snapshot is an immutable title → page-id lookup built from the
// non-deleted page listing. Staleness between refreshes is acceptable;
// resolution happens on page load, not via live subscription.
type Snapshot struct {
	byTitle map[string]int64
}

// NewSnapshot builds a snapshot from page references. Later duplicates of
// a case-folded title do not displace earlier ones.
func NewSnapshot(refs []models.PageRef) *Snapshot {
	byTitle := make(map[string]int64, len(refs))
	for _, r := range refs {
		key := strings.ToLower(r.Title)
		if _, ok := byTitle[key]; !ok {
			byTitle[key] = r.ID
		}
	}
	return &Snapshot{byTitle: byTitle}
}

// Resolve looks up a title case-insensitively. A found title is a live
// link; a miss is a dead link the UI may offer to create. Resolution is
// passive: creation never happens here. The inner text is matched as
// written, so padded titles like [[ World ]] stay dead links.
func (s *Snapshot) Resolve(title string) (int64, bool) {
	id, ok := s.byTitle[strings.ToLower(title)]
	return id, ok
}

// Len returns the number of distinct titles in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.byTitle)
}
