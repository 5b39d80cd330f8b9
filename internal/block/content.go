package block

import (
	"encoding/json"
	"strings"
)

// checkedPrefix is the literal stored form of a checked checkbox. The
// prefix lives only at the storage boundary; editing code works with the
// Checkbox variant.
const checkedPrefix = "[x] "

// Checkbox is the decoded form of a checkbox block.
type Checkbox struct {
	Checked bool
	Text    string
}

// ParseCheckbox decodes the stored prefix encoding.
func ParseCheckbox(content string) Checkbox {
	if strings.HasPrefix(content, checkedPrefix) {
		return Checkbox{Checked: true, Text: content[len(checkedPrefix):]}
	}
	return Checkbox{Text: content}
}

// EncodeCheckbox produces the stored prefix encoding.
func EncodeCheckbox(c Checkbox) string {
	if c.Checked {
		return checkedPrefix + c.Text
	}
	return c.Text
}

// ToggleCheckbox flips the checked state. Toggling twice returns the
// original content byte-for-byte.
func ToggleCheckbox(content string) string {
	c := ParseCheckbox(content)
	c.Checked = !c.Checked
	return EncodeCheckbox(c)
}

// StripCheckboxPrefix returns the display text of any block content with
// a checked prefix removed. Safe to call on non-checkbox content.
func StripCheckboxPrefix(content string) string {
	return ParseCheckbox(content).Text
}

// Table is a rectangular grid of cells; row 0 is conventionally the header.
type Table [][]string

// DefaultTable is the placeholder grid used when stored table content
// cannot be parsed.
func DefaultTable() Table {
	return Table{{"Header 1", "Header 2"}, {"Cell 1", "Cell 2"}}
}

// DecodeTable parses stored table content, falling back to the default
// placeholder on malformed JSON or a non-rectangular shape.
func DecodeTable(content string) Table {
	var t Table
	if err := json.Unmarshal([]byte(content), &t); err != nil {
		return DefaultTable()
	}
	if len(t) == 0 || len(t[0]) == 0 {
		return DefaultTable()
	}
	width := len(t[0])
	for _, row := range t {
		if len(row) != width {
			return DefaultTable()
		}
	}
	return t
}

// EncodeTable serializes a table to its stored JSON form.
func EncodeTable(t Table) string {
	data, err := json.Marshal(t)
	if err != nil {
		return EncodeTable(DefaultTable())
	}
	return string(data)
}

// AddRow appends an empty row.
func (t Table) AddRow() Table {
	cols := len(t[0])
	return append(t, make([]string, cols))
}

// AddColumn appends an empty cell to every row.
func (t Table) AddColumn() Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = append(append([]string(nil), row...), "")
	}
	return out
}

// RemoveRow deletes row i. Removing the last remaining row is a no-op.
func (t Table) RemoveRow(i int) Table {
	if len(t) <= 1 || i < 0 || i >= len(t) {
		return t
	}
	out := make(Table, 0, len(t)-1)
	out = append(out, t[:i]...)
	return append(out, t[i+1:]...)
}

// RemoveColumn deletes column i from every row. Removing the last
// remaining column is a no-op.
func (t Table) RemoveColumn(i int) Table {
	if len(t[0]) <= 1 || i < 0 || i >= len(t[0]) {
		return t
	}
	out := make(Table, len(t))
	for r, row := range t {
		cells := make([]string, 0, len(row)-1)
		cells = append(cells, row[:i]...)
		out[r] = append(cells, row[i+1:]...)
	}
	return out
}

// SetCell replaces the value at (row, col), ignoring out-of-range indexes.
func (t Table) SetCell(row, col int, value string) Table {
	if row < 0 || row >= len(t) || col < 0 || col >= len(t[row]) {
		return t
	}
	t[row][col] = value
	return t
}

// Code is the decoded form of a code block.
type Code struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Languages is the closed set offered by the language picker. Values
// outside this set are passed through verbatim and render with a fallback.
var Languages = []string{
	"javascript", "typescript", "python", "sql",
	"html", "css", "bash", "json", "markdown",
}

// DecodeCode parses stored code content, defaulting to empty javascript
// on malformed JSON.
func DecodeCode(content string) Code {
	var c Code
	if err := json.Unmarshal([]byte(content), &c); err != nil {
		return Code{Language: "javascript"}
	}
	if c.Language == "" {
		c.Language = "javascript"
	}
	return c
}

// EncodeCode serializes a code block to its stored JSON form.
func EncodeCode(c Code) string {
	data, _ := json.Marshal(c)
	return string(data)
}

// Image is the decoded form of an image block. Width zero means auto.
type Image struct {
	URL   string `json:"url"`
	Width int    `json:"width,omitempty"`
}

// DecodeImage accepts both encodings: JSON {url, width} and the legacy
// bare-URL string.
func DecodeImage(content string) Image {
	var img Image
	if err := json.Unmarshal([]byte(content), &img); err == nil && img.URL != "" {
		return img
	}
	return Image{URL: content}
}

// EncodeImage serializes an image block to the JSON form.
func EncodeImage(img Image) string {
	data, _ := json.Marshal(img)
	return string(data)
}

// Bookmark is the decoded form of a link_preview block.
type Bookmark struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// DecodeBookmark parses stored bookmark content. Nil means the bookmark
// is unfilled and awaiting URL input.
func DecodeBookmark(content string) *Bookmark {
	if content == "" {
		return nil
	}
	var b Bookmark
	if err := json.Unmarshal([]byte(content), &b); err != nil || b.URL == "" {
		return nil
	}
	return &b
}

// EncodeBookmark serializes a bookmark to its stored JSON form.
func EncodeBookmark(b Bookmark) string {
	data, _ := json.Marshal(b)
	return string(data)
}

// PlainText extracts the searchable text of a block for indexing.
func PlainText(typ, content string) string {
	switch typ {
	case TypeDivider:
		return ""
	case TypeCheckbox:
		return ParseCheckbox(content).Text
	case TypeTable:
		t := DecodeTable(content)
		var parts []string
		for _, row := range t {
			for _, cell := range row {
				if cell != "" {
					parts = append(parts, cell)
				}
			}
		}
		return strings.Join(parts, " ")
	case TypeCode:
		return DecodeCode(content).Code
	case TypeImage:
		return ""
	case TypeLinkPreview:
		if b := DecodeBookmark(content); b != nil {
			return strings.TrimSpace(b.Title + " " + b.Description)
		}
		return ""
	default:
		return content
	}
}
