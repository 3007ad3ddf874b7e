// Package catalog builds, persists and searches the protocol index of a
// directory of capture files.
package catalog

// Record describes one indexed capture file.
type Record struct {
	Filename  string   `json:"filename"`
	Path      string   `json:"path"`
	SizeBytes int64    `json:"size_bytes"`
	Protocols []string `json:"protocols"`
}

// Index is one complete snapshot, in directory enumeration order.
type Index struct {
	Records []Record
}

// Len returns the number of records.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Records)
}

// BuildResult is returned by Builder.Build.
type BuildResult struct {
	Index    *Index
	Indexed  int      // records in Index
	Failed   []string // eligible files dropped because extraction failed
	Excluded []string // directory entries skipped by exact name
}
