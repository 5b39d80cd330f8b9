// Package block defines the typed content blocks a page is composed of
// and the per-type content encodings used at the storage boundary.
package block

// Block types. The set is closed; unknown types read from storage are
// rendered as paragraphs by consumers.
const (
	TypeParagraph   = "paragraph"
	TypeHeading     = "heading"
	TypeBullet      = "bullet"
	TypeQuote       = "quote"
	TypeCheckbox    = "checkbox"
	TypeTable       = "table"
	TypeCode        = "code"
	TypeImage       = "image"
	TypeLinkPreview = "link_preview"
	TypeDivider     = "divider"
)

// Types lists all block types in slash-menu display order.
var Types = []string{
	TypeParagraph,
	TypeHeading,
	TypeCheckbox,
	TypeBullet,
	TypeTable,
	TypeQuote,
	TypeCode,
	TypeImage,
	TypeLinkPreview,
	TypeDivider,
}

// ValidType reports whether t is a known block type.
func ValidType(t string) bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

// Block is one typed unit of page content held in an editing session.
// ID is store-assigned and zero for not-yet-persisted blocks. ClientKey
// is a transient identifier that tracks identity across reorders before
// persistence; it is never sent to the store.
type Block struct {
	ID        int64  `json:"id,omitempty"`
	ClientKey string `json:"client_key"`
	Type      string `json:"type"`
	Content   string `json:"content"`
}

// Record is the persisted shape of a block. The in-memory array order is
// the order; OrderIndex is materialized only when serializing to the store.
type Record struct {
	ID         int64  `json:"id,omitempty"`
	PageID     int64  `json:"page_id,omitempty"`
	Type       string `json:"type"`
	Content    string `json:"content"`
	OrderIndex int    `json:"order_index"`
}

// EmptyContent returns the canonical empty content for a block type.
// Retype resets content to this form; no migration is attempted.
func EmptyContent(typ string) string {
	switch typ {
	case TypeCode:
		return EncodeCode(Code{Language: "javascript"})
	case TypeTable:
		return EncodeTable(DefaultTable())
	default:
		return ""
	}
}

// IsListType reports whether a type participates in the tight-spacing
// presentation rule for consecutive same-type list items.
func IsListType(typ string) bool {
	return typ == TypeBullet || typ == TypeCheckbox
}
