package catalog

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Search returns the records listing protocol, compared case-insensitively
// and exactly (no prefix or substring matching), in stored order.
// It never returns nil.
func Search(idx *Index, protocol string) []Record {
	out := []Record{}
	if idx == nil {
		return out
	}
	// A Caser keeps state between calls and must not be shared across goroutines.
	lower := cases.Lower(language.Und)
	want := lower.String(protocol)
	if want == "" {
		return out
	}
	for _, r := range idx.Records {
		for _, p := range r.Protocols {
			if lower.String(p) == want {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
