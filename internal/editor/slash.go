package editor

import (
	"strings"

	"github.com/halvard/ansuz/internal/block"
)

// SlashOption is one entry in the slash-command block-type picker.
type SlashOption struct {
	Label       string `json:"label"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// slashOptions is the fixed option set, in menu order.
var slashOptions = []SlashOption{
	{Label: "Text", Type: block.TypeParagraph, Description: "Just start writing"},
	{Label: "Heading", Type: block.TypeHeading, Description: "Section title"},
	{Label: "Checklist", Type: block.TypeCheckbox, Description: "Track tasks"},
	{Label: "Bullet List", Type: block.TypeBullet, Description: "Simple list"},
	{Label: "Table", Type: block.TypeTable, Description: "Data grid"},
	{Label: "Quote", Type: block.TypeQuote, Description: "Capture quote"},
	{Label: "Code", Type: block.TypeCode, Description: "Technical script"},
	{Label: "Image", Type: block.TypeImage, Description: "Visual evidence"},
	{Label: "Bookmark", Type: block.TypeLinkPreview, Description: "Web reference"},
	{Label: "Divider", Type: block.TypeDivider, Description: "Separator"},
}

// SlashOptions returns the fixed option set.
func SlashOptions() []SlashOption {
	out := make([]SlashOption, len(slashOptions))
	copy(out, slashOptions)
	return out
}

// Slash is the slash-command state machine:
// inactive → active(query, selectedIndex) → {committed | cancelled} → inactive.
type Slash struct {
	active bool
	query  string
	index  int
}

// Observe feeds the focused block's content to the machine. A leading
// "/" with no space yet typed activates the menu with the remainder as
// query; anything else (including the appearance of a space) cancels.
// Each keystroke resets the selection to the top.
func (s *Slash) Observe(content string) {
	if strings.HasPrefix(content, "/") && !strings.Contains(content, " ") {
		s.active = true
		s.query = content[1:]
		s.index = 0
		return
	}
	s.Cancel()
}

// Active reports whether the menu is open.
func (s *Slash) Active() bool { return s.active }

// Query returns the current filter query.
func (s *Slash) Query() string { return s.query }

// SelectedIndex returns the selection index within the filtered options.
func (s *Slash) SelectedIndex() int { return s.index }

// Filtered returns the options whose label contains the query,
// case-insensitively.
func (s *Slash) Filtered() []SlashOption {
	q := strings.ToLower(s.query)
	var out []SlashOption
	for _, opt := range slashOptions {
		if strings.Contains(strings.ToLower(opt.Label), q) {
			out = append(out, opt)
		}
	}
	return out
}

// MoveUp cycles the selection upward with wraparound over the currently
// filtered count.
func (s *Slash) MoveUp() {
	n := len(s.Filtered())
	if !s.active || n == 0 {
		return
	}
	s.index = (s.index - 1 + n) % n
}

// MoveDown cycles the selection downward with wraparound.
func (s *Slash) MoveDown() {
	n := len(s.Filtered())
	if !s.active || n == 0 {
		return
	}
	s.index = (s.index + 1) % n
}

// Selected returns the currently highlighted option.
func (s *Slash) Selected() (SlashOption, bool) {
	opts := s.Filtered()
	if !s.active || s.index >= len(opts) {
		return SlashOption{}, false
	}
	return opts[s.index], true
}

// Cancel closes the menu without applying anything.
func (s *Slash) Cancel() {
	s.active = false
	s.query = ""
	s.index = 0
}

// Slash exposes the session's slash-command state.
func (s *Session) Slash() *Slash { return &s.slash }

// CommitSlash applies the highlighted option to the focused block:
// retype plus content reset, then the menu closes. Returns false when
// the menu is closed or the filter matches nothing.
func (s *Session) CommitSlash() bool {
	opt, ok := s.slash.Selected()
	if !ok || s.focused == "" {
		return false
	}
	if err := s.Retype(s.focused, opt.Type); err != nil {
		return false
	}
	s.slash.Cancel()
	return true
}

// CancelSlash closes the menu (Escape).
func (s *Session) CancelSlash() {
	s.slash.Cancel()
}
