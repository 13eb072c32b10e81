package mcpserver

// MarkerFormatContract describes how blocks are delimited inside Markdown
// documents. LLM consumers should follow it when editing documents directly.
const MarkerFormatContract = `# Smartblock Marker Contract

A block is a run of Markdown lines wrapped in HTML comment markers. Everything
outside markers is ordinary document text and is left untouched.

## Structure

` + "```" + `markdown
<!-- block:id=retention-1 type=insight tags=learning,memory reorderable=true title=Why%20it%20sticks -->
Spaced repetition beats rereading.
<!-- /block -->
` + "```" + `

## Rules

1. **One marker per line.** The start marker and ` + "`" + `<!-- /block -->` + "`" + ` each sit alone on
   their own line. Blocks do not nest; a start marker inside an open block is kept as text.
2. **` + "`" + `id` + "`" + ` is required** and unique within the document. Letters, digits, ` + "`" + `_` + "`" + ` and ` + "`" + `-` + "`" + ` only.
   Omit it on create and one of the form ` + "`" + `blk-1a2b3c4d5e6f` + "`" + ` is generated.
3. **` + "`" + `type` + "`" + `** is one of: summary, zettel, quote, argument, definition, example,
   question, insight, todo, note. Unknown types are rejected.
4. **` + "`" + `tags` + "`" + `** is a comma-separated list without spaces.
5. **` + "`" + `title` + "`" + `** is percent-encoded (spaces become ` + "`" + `%20` + "`" + `).
6. **` + "`" + `reorderable` + "`" + `** is ` + "`" + `true` + "`" + ` or ` + "`" + `false` + "`" + `. Reordering never moves a block that is not reorderable.
7. **Content** is between 10 and 10000 characters and must not be blank.
8. **Other attributes** are read but not written back when the block is rewritten.

## Derived data

Summaries, extraction targets and timestamps live in a JSON sidecar next to the
vault (` + "`" + `.smartblock/<document>.json` + "`" + `), never inside the document itself.
Extracted notes are written to ` + "`" + `extracted/<slug>.md` + "`" + ` with YAML frontmatter.
`
