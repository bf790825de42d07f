package mcpserver

// WorkspaceFormatContract describes the on-disk workspace layout that
// LLM consumers should follow when reading or editing tracker files directly.
const WorkspaceFormatContract = `# Tracker Workspace Format Contract

A workspace is a directory of Markdown documents. Everything the tracker
knows is derived from these files; there is no database.

## Layout

` + "```" + `text
initiatives/
  active/<name>/
    INITIATIVE.md          # REQUIRED – the initiative itself
    TRACKER.md             # OPTIONAL – free-form progress tracker
    sessions/YYYY-MM-DD-<slug>.md
    decisions/<slug>.md
    plans/<slug>.md
  backlog/<name>/...
  completed/<name>/...
todos/<slug>.md
ideas/<slug>.md
` + "```" + `

An initiative's state is the directory it lives in. Moving it between
` + "`" + `active` + "`" + `, ` + "`" + `backlog` + "`" + ` and ` + "`" + `completed` + "`" + ` moves the whole directory and
updates the ` + "`" + `status` + "`" + ` field.

## Documents

` + "```" + `markdown
---
title: Human-readable title
created: 2025-01-15
tags:
  - tag-one
---

# Human-readable title

Body text in standard Markdown.
` + "```" + `

1. The metadata block is optional; when present the ` + "`" + `---` + "`" + ` fence must be the
   first line of the file.
2. Names are lowercase kebab-case slugs of the title (letters, digits, dashes).
3. Dates are ` + "`" + `YYYY-MM-DD` + "`" + `.
4. Files and directories whose names start with a dot are ignored.

## Per-type fields

- INITIATIVE.md: ` + "`" + `title` + "`" + `, ` + "`" + `created` + "`" + `, ` + "`" + `status` + "`" + `, optional ` + "`" + `tags` + "`" + `.
- Sessions: ` + "`" + `date` + "`" + `, optional ` + "`" + `branch` + "`" + `. The file name starts with the date.
- Decisions: ` + "`" + `title` + "`" + `, ` + "`" + `date` + "`" + `, ` + "`" + `status` + "`" + ` (proposed, accepted, superseded, deprecated).
- Todos: ` + "`" + `title` + "`" + `, ` + "`" + `created` + "`" + `, optional ` + "`" + `priority` + "`" + ` (high, medium, low) and ` + "`" + `tags` + "`" + `.
- Ideas: ` + "`" + `title` + "`" + `, ` + "`" + `created` + "`" + `, optional ` + "`" + `tags` + "`" + `.
- Plans: free-form, metadata optional.

Prefer the tools over direct edits: they apply these rules for you.
`
