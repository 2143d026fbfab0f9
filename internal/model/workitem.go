package model

// Kind distinguishes a single addressable item from an expandable collection.
type Kind string

const (
	KindSingle     Kind = "single"
	KindCollection Kind = "collection"
)

// WorkItem is one addressable piece of remote content. Collections are
// expanded into per-member single items before any job is scheduled.
// Immutable after creation except for the lazily resolved title.
type WorkItem struct {
	SourceID string
	Kind     Kind
	Title    string
}
