// Package matching decides whether a suburb name belongs to a set of postcode candidates.
package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"address-validator/internal/locality"
)

type Kind int

const (
	NoStateMatch Kind = iota + 1
	NoSuburbMatch
	Matched
)

func (k Kind) String() string {
	switch k {
	case NoStateMatch:
		return "no_state_match"
	case NoSuburbMatch:
		return "no_suburb_match"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// MaxSuggestions bounds Outcome.Suggestions.
const MaxSuggestions = 5

// Outcome is the result of Match.
//   - NoStateMatch: States holds the distinct states of all candidates.
//   - NoSuburbMatch: Suggestions holds up to MaxSuggestions names in the requested state.
//   - Matched: Location is the chosen candidate.
type Outcome struct {
	Kind        Kind
	Location    locality.Location
	States      []string
	Suggestions []string
}

// Match filters candidates by state (case-insensitive) and then by suburb name.
// A candidate passes on the first of: equal names, containment either way, a shared word.
// Among passing candidates an exact case-insensitive name wins, otherwise the first one.
func Match(candidates []locality.Location, suburb, state string) Outcome {
	inState := make([]locality.Location, 0, len(candidates))
	for _, c := range candidates {
		if strings.EqualFold(c.State, state) {
			inState = append(inState, c)
		}
	}
	if len(inState) == 0 {
		return Outcome{Kind: NoStateMatch, States: distinctStates(candidates)}
	}

	want := normalize(suburb)
	wantTokens := Tokens(want)

	var passing []locality.Location
	for _, c := range inState {
		if nameMatches(normalize(c.Name), want, wantTokens) {
			passing = append(passing, c)
		}
	}
	if len(passing) == 0 {
		return Outcome{Kind: NoSuburbMatch, Suggestions: suggestions(inState)}
	}

	lowered := strings.ToLower(suburb)
	for _, c := range passing {
		if strings.ToLower(c.Name) == lowered {
			return Outcome{Kind: Matched, Location: c}
		}
	}
	return Outcome{Kind: Matched, Location: passing[0]}
}

func nameMatches(name, want string, wantTokens []string) bool {
	if name == want {
		return true
	}
	if strings.Contains(name, want) || strings.Contains(want, name) {
		return true
	}
	for _, nt := range Tokens(name) {
		for _, wt := range wantTokens {
			if nt == wt {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokens splits s into words. Runes other than ASCII letters, digits, underscore and
// whitespace act as separators; single-rune words are dropped.
func Tokens(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	fields := strings.Fields(cleaned)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func distinctStates(locs []locality.Location) []string {
	seen := make(map[string]struct{}, len(locs))
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		if _, ok := seen[l.State]; ok {
			continue
		}
		seen[l.State] = struct{}{}
		out = append(out, l.State)
	}
	return out
}

func suggestions(locs []locality.Location) []string {
	seen := make(map[string]struct{}, MaxSuggestions)
	out := make([]string, 0, MaxSuggestions)
	for _, l := range locs {
		if len(out) == MaxSuggestions {
			break
		}
		if _, ok := seen[l.Name]; ok {
			continue
		}
		seen[l.Name] = struct{}{}
		out = append(out, l.Name)
	}
	return out
}
