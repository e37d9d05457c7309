package mcpserver

// NoteGuide tells LLM consumers what happens to a note they create.
const NoteGuide = `# ContextWise Note Guide

Notes are plain text with a title. Every note created through ` + "`create_note`" + `
passes through the same steps as the web form.

## What happens on create

1. The content is summarized by a hosted model. If no summary can be produced
   the note is **not** saved and the tool returns the reason.
2. People, organizations and locations named in the content become tags.
   Each distinct name becomes one tag. Other entity kinds are ignored.
3. A note with no recognizable names is still saved, with no tags, and the
   tool result carries the warning "No entities found for tagging".

## Writing notes that tag well

- Use full proper names ("Acme Corp", not "them").
- Tags are matched exactly as written, so "Alice" and "Alice Smith" are two tags.
- Notes cannot be edited or deleted after creation.

## Filtering

` + "`list_notes`" + ` accepts an optional ` + "`tag`" + ` argument. A note matches when any of
its tags contains the argument, ignoring case. Use ` + "`list_tags`" + ` to see every tag.
`
