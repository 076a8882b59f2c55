// Package bankprofile holds per-institution parsing heuristics: how each
// bank formats dates, which header markers identify its statements, which
// description patterns map to categories, and which literal OCR misreads are
// known for its layouts. The registry is a static lookup table with
// deterministic, order-sensitive matching; registration order is the
// tie-break rule and must be preserved.
package bankprofile

import (
	"regexp"
	"strings"
)

// FallbackInstitution is the catch-all institution id. A profile for it
// always exists and its category rules back up every other profile.
const FallbackInstitution = "other"

// Direction hints whether a category rule usually describes money out or in.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// CategoryRule maps a description pattern to a category. Rules are tried in
// declaration order; the first match wins.
type CategoryRule struct {
	Pattern   *regexp.Regexp
	Category  string
	Direction Direction
}

// KnownError is a literal substitution for a recurring extraction misread
// specific to one bank's statement layout.
type KnownError struct {
	From string
	To   string
}

// Profile is the registry entry for one institution.
type Profile struct {
	InstitutionID string
	DisplayName   string

	// DateFormats are Go time layouts in the order the bank's statements
	// use them, most common first.
	DateFormats []string

	// HeaderMarkers identify the institution in raw statement text.
	HeaderMarkers []string
	// FooterMarkers and PageBreakMarkers delimit statement structure for
	// the extraction collaborator.
	FooterMarkers    []string
	PageBreakMarkers []string

	CategoryRules []CategoryRule
	KnownErrors   []KnownError

	// OCRConfusions holds single-character misreads (letter read where a
	// digit was printed). Applied only between digits.
	OCRConfusions map[rune]rune
}

func rule(pattern, category string, dir Direction) CategoryRule {
	return CategoryRule{
		Pattern:   regexp.MustCompile("(?i)" + pattern),
		Category:  category,
		Direction: dir,
	}
}

// Registry is the ordered set of registered institution profiles.
type Registry struct {
	ordered  []*Profile
	regional []*Profile
	byID     map[string]*Profile
}

// NewRegistry returns a registry pre-populated with the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]*Profile)}
	for _, p := range defaultProfiles() {
		r.Register(p)
	}
	for _, p := range regionalProfiles() {
		r.RegisterRegional(p)
	}
	return r
}

// Register adds a primary profile. Registration order is significant:
// DetectFromContent scans profiles in this order and the first match wins.
func (r *Registry) Register(p *Profile) {
	r.ordered = append(r.ordered, p)
	r.byID[p.InstitutionID] = p
}

// RegisterRegional adds a profile to the secondary detection set. Regional
// profiles refine categorization but are not separately selectable as a
// detection result.
func (r *Registry) RegisterRegional(p *Profile) {
	r.regional = append(r.regional, p)
	r.byID[p.InstitutionID] = p
}

// GetProfile returns the profile for the institution, or the fallback
// profile when the institution is unknown. It never fails.
func (r *Registry) GetProfile(institutionID string) *Profile {
	if p, ok := r.byID[institutionID]; ok {
		return p
	}
	return r.byID[FallbackInstitution]
}

// DetectFromContent scans registered profiles in registration order and
// returns the first institution whose header markers appear in the text
// (case-insensitive substring). When no primary profile matches, a secondary
// pass checks the regional profiles; a regional match still reports the
// fallback institution id. Regional banks share the generic profile identity
// downstream, so the catch-all id is the correct result for them.
func (r *Registry) DetectFromContent(rawText string) (string, bool) {
	lower := strings.ToLower(rawText)

	for _, p := range r.ordered {
		if p.InstitutionID == FallbackInstitution {
			continue
		}
		if matchesAnyMarker(lower, p.HeaderMarkers) {
			return p.InstitutionID, true
		}
	}

	for _, p := range r.regional {
		if matchesAnyMarker(lower, p.HeaderMarkers) {
			return FallbackInstitution, true
		}
	}

	return "", false
}

func matchesAnyMarker(lowerText string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lowerText, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// CategorizeTransaction matches the description against the institution's
// rule list, first match wins. When the institution's own rules produce no
// match and the institution is not itself the fallback, the fallback
// profile's rules are tried next.
func (r *Registry) CategorizeTransaction(description, institutionID string) (string, bool) {
	p := r.GetProfile(institutionID)
	if cat, ok := matchRules(description, p.CategoryRules); ok {
		return cat, true
	}
	if p.InstitutionID != FallbackInstitution {
		fallback := r.byID[FallbackInstitution]
		return matchRules(description, fallback.CategoryRules)
	}
	return "", false
}

func matchRules(description string, rules []CategoryRule) (string, bool) {
	for _, cr := range rules {
		if cr.Pattern.MatchString(description) {
			return cr.Category, true
		}
	}
	return "", false
}

// ApplyKnownErrorCorrections repairs text using the institution's literal
// known-error substitutions in order, then fixes single-character OCR
// confusions. A confused character is only replaced when it sits between two
// digits, so alphabetic text is never corrupted.
func (r *Registry) ApplyKnownErrorCorrections(text, institutionID string) string {
	p := r.GetProfile(institutionID)

	for _, ke := range p.KnownErrors {
		text = strings.ReplaceAll(text, ke.From, ke.To)
	}

	if len(p.OCRConfusions) == 0 {
		return text
	}

	runes := []rune(text)
	for i := 1; i < len(runes)-1; i++ {
		repl, ok := p.OCRConfusions[runes[i]]
		if !ok {
			continue
		}
		if isDigit(runes[i-1]) && isDigit(runes[i+1]) {
			runes[i] = repl
		}
	}
	return string(runes)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
