package restcountries

import (
	"sort"
	"strings"
)

// manualAlternates supplements the API altSpellings with names users
// actually type. Keyed by ISO 3166-1 alpha-3 code; matching is
// case-insensitive downstream.
var manualAlternates = map[string][]string{
	"USA": {"America", "The States", "United States"},
	"GBR": {"England", "Britain", "Great Britain", "UK"},
	"KOR": {"Korea", "South Korea"},
	"PRK": {"North Korea"},
	"NLD": {"Holland"},
	"CZE": {"Czech Republic"},
	"ARE": {"UAE", "Emirates"},
	"COD": {"Congo", "DRC"},
	"MMR": {"Burma"},
	"CIV": {"Ivory Coast"},
}

// MergeAlternates combines API alternates with the manual overrides,
// lowercased, deduplicated, empty entries dropped, sorted for stable output.
func MergeAlternates(code string, apiAlternates []string) []string {
	seen := make(map[string]struct{})
	for _, alt := range apiAlternates {
		if alt = strings.ToLower(strings.TrimSpace(alt)); alt != "" {
			seen[alt] = struct{}{}
		}
	}
	for _, alt := range manualAlternates[code] {
		if alt = strings.ToLower(strings.TrimSpace(alt)); alt != "" {
			seen[alt] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for alt := range seen {
		out = append(out, alt)
	}
	sort.Strings(out)
	return out
}
