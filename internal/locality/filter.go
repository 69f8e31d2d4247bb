package locality

import (
	"regexp"
	"sort"
)

var postcodePattern = regexp.MustCompile(`^\d{4}$`)

// ValidPostcode reports whether s is exactly four digits.
func ValidPostcode(s string) bool {
	return postcodePattern.MatchString(s)
}

func UniqueCategories(locs []Location) []string {
	seen := make(map[string]struct{}, len(locs))
	out := make([]string, 0)
	for _, l := range locs {
		if _, ok := seen[l.Category]; ok {
			continue
		}
		seen[l.Category] = struct{}{}
		out = append(out, l.Category)
	}
	sort.Strings(out)
	return out
}

// FilterByCategories keeps locations whose category is in cats. An empty cats keeps everything.
func FilterByCategories(locs []Location, cats []string) []Location {
	if len(cats) == 0 {
		return locs
	}
	allowed := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		allowed[c] = struct{}{}
	}
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if _, ok := allowed[l.Category]; ok {
			out = append(out, l)
		}
	}
	return out
}
