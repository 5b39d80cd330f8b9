package mcpserver

// BlockFormatContract describes the canonical page/block format that
// LLM consumers must follow when creating pages.
const BlockFormatContract = `# Ansuz Page Format Contract

Every page stored in Ansuz is a metadata tuple plus an ordered list of
typed blocks. Tools that create pages MUST follow this structure.

## Metadata

- ` + "`title`" + ` — display name, required (defaults to "Untitled").
- ` + "`category`" + ` — one of: projects, areas, resources, archives, inbox.
- ` + "`deadline`" + ` — optional ISO date (YYYY-MM-DD).
- ` + "`tags`" + ` — comma-separated list, e.g. ` + "`go,planning`" + `.

## Blocks

Blocks are supplied as a JSON array in slash-menu order of preference:

` + "```" + `json
[
  {"type": "heading", "content": "Section title"},
  {"type": "paragraph", "content": "Body text with **bold** and [[Wiki Links]]"},
  {"type": "bullet", "content": "List item"},
  {"type": "checkbox", "content": "[x] Done task"},
  {"type": "quote", "content": "Captured quote"},
  {"type": "code", "content": "{\"language\":\"go\",\"code\":\"fmt.Println()\"}"},
  {"type": "table", "content": "[[\"Header 1\",\"Header 2\"],[\"Cell 1\",\"Cell 2\"]]"},
  {"type": "image", "content": "{\"url\":\"/uploads/pic.png\",\"width\":480}"},
  {"type": "link_preview", "content": "{\"url\":\"https://example.com\"}"},
  {"type": "divider", "content": ""}
]
` + "```" + `

## Rules

1. **Types are closed.** Only the ten types above are valid.
2. **Text blocks** (paragraph, heading, bullet, quote) hold plain text
   with inline markup: ` + "`**bold**`" + `, ` + "`*italic*`" + `, ` + "`~~strike~~`" + `,
   ` + "`" + "`code`" + "`" + `, ` + "`[label](url)`" + `, ` + "`<u>underline</u>`" + `.
3. **Wiki links** use double brackets: ` + "`[[Page Title]]`" + `. Resolution is
   case-insensitive against existing page titles; dead links are kept as
   written and become pages only on explicit user action.
4. **Checkbox content** is the item text, prefixed with ` + "`[x] `" + ` when
   checked. Unchecked items carry no prefix.
5. **Code blocks** hold a JSON object with ` + "`language`" + ` and ` + "`code`" + `.
6. **Table blocks** hold a JSON array of equal-length string rows; the
   first row is the header.
7. **Images** reference uploaded assets by absolute path
   (` + "`/uploads/name.png`" + `); upload via the ` + "`upload_asset`" + ` tool first.
8. **Order matters.** Blocks render top to bottom in array order.
`
