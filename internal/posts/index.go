package posts

import "slices"

// BuildIndex projects every record of the snapshot, in order, into a
// listing entry.
func BuildIndex(snapshot *Snapshot) []IndexEntry {
	entries := make([]IndexEntry, 0, snapshot.Len())
	for i := 0; i < snapshot.Len(); i++ {
		entries = append(entries, Entry(snapshot.At(i)))
	}
	return entries
}

// Entry projects a single record.
func Entry(record *Record) IndexEntry {
	tags := slices.Clone(record.Tags)
	if tags == nil {
		tags = []string{}
	}
	return IndexEntry{
		Title:          record.Title,
		Summary:        record.Teaser,
		DateDisplay:    record.DateDisplay,
		URL:            record.URL,
		Tags:           tags,
		Author:         record.Author,
		AuthorInitials: record.AuthorInitials,
	}
}

// Paginate splits entries into pages of size entries. A size of zero or less
// yields a single page.
func Paginate(entries []IndexEntry, size int) [][]IndexEntry {
	if size <= 0 || len(entries) <= size {
		return [][]IndexEntry{entries}
	}
	var pages [][]IndexEntry
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		pages = append(pages, entries[start:end])
	}
	return pages
}
