package mcpserver

// ReferenceContract describes the fields of a reference for LLM consumers
// adding entries through the tools.
const ReferenceContract = `# Anchor Reference Contract

A reference catalogs one folder or file on this machine.

## Fields

| Field | Required | Notes |
|---|---|---|
| name | yes | Display name. Leading and trailing spaces are trimmed. |
| path | yes | Absolute path. It does not have to exist; a missing path is reported but accepted. |
| type | no | ` + "`folder`" + ` (default) or ` + "`file`" + `. |
| status | no | ` + "`active`" + ` (default), ` + "`paused`" + `, ` + "`idea`" + `, ` + "`completed`" + `, ` + "`archived`" + `. |
| tags | no | Comma-separated. Empty entries are dropped; order, case and duplicates are kept. |
| description | no | Free text. Blank means none. |
| pinned | no | Pinned references are listed first in quick access. |

The id, createdAt and lastOpenedAt fields are assigned by Anchor and cannot
be set. lastOpenedAt changes whenever the reference is opened.

## Search

search_references matches the query as a case-insensitive substring of the
name or of any single tag.
`
