// Package storage holds text transforms over Confluence storage format
// (CSF) documents: Obsidian embed rewriting, code macro theming and
// attachment discovery.
package storage
