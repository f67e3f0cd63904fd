// Package address normalizes HDB street names and checks coordinates against
// Singapore's bounding box.
package address

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// DefaultAcronyms expands the abbreviations used in the resale dataset's
// street_name column.
var DefaultAcronyms = map[string]string{
	"DR":       "DRIVE",
	"ST":       "STREET",
	"RD":       "ROAD",
	"AVE":      "AVENUE",
	"NTH":      "NORTH",
	"STH":      "SOUTH",
	"UPP":      "UPPER",
	"CRES":     "CRESCENT",
	"JLN":      "JALAN",
	"TG":       "TANJONG",
	"BT":       "BUKIT",
	"KG":       "KAMPONG",
	"CL":       "CLOSE",
	"PL":       "PLACE",
	"CTRL":     "CENTRAL",
	"C'WEALTH": "COMMONWEALTH",
}

type replacement struct {
	re   *regexp.Regexp
	full string
}

// Normalizer expands street-name acronyms on word boundaries.
type Normalizer struct {
	replacements []replacement
}

// NewNormalizer compiles an acronym table. Keys are matched case-insensitively
// after the street name is upper-cased. A nil table uses DefaultAcronyms.
func NewNormalizer(acronyms map[string]string) (*Normalizer, error) {
	if acronyms == nil {
		acronyms = DefaultAcronyms
	}

	keys := make([]string, 0, len(acronyms))
	for k := range acronyms {
		keys = append(keys, k)
	}
	// Longest first so "CRES" never loses to a shorter overlapping key.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	n := &Normalizer{}
	for _, k := range keys {
		abbr := strings.ToUpper(strings.TrimSpace(k))
		if abbr == "" {
			return nil, eris.New("address: empty acronym key")
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(abbr) + `\b`)
		if err != nil {
			return nil, eris.Wrapf(err, "address: compile acronym %q", k)
		}
		n.replacements = append(n.replacements, replacement{re: re, full: strings.ToUpper(acronyms[k])})
	}
	return n, nil
}

// Normalize upper-cases a street name, collapses whitespace and expands acronyms.
// It is safe for concurrent use.
func (n *Normalizer) Normalize(street string) string {
	// A Caser holds state, so each call gets its own.
	s := strings.Join(strings.Fields(cases.Upper(language.Und).String(street)), " ")
	for _, r := range n.replacements {
		s = r.re.ReplaceAllLiteralString(s, r.full)
	}
	return s
}

// FullAddress returns "<block> <normalized street>".
func (n *Normalizer) FullAddress(block, street string) string {
	block = strings.TrimSpace(block)
	street = n.Normalize(street)
	if block == "" {
		return street
	}
	return block + " " + street
}

// Bounds is an inclusive latitude/longitude box.
type Bounds struct {
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLon float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLon float64 `yaml:"max_lon" mapstructure:"max_lon"`
}

// SingaporeBounds covers mainland Singapore and its near islands.
var SingaporeBounds = Bounds{MinLat: 1.1304, MaxLat: 1.4504, MinLon: 103.6, MaxLon: 104.0}

// Contains reports whether c lies inside the box.
func (b Bounds) Contains(c model.Coordinate) bool {
	return c.Valid() &&
		b.MinLat <= c.Latitude && c.Latitude <= b.MaxLat &&
		b.MinLon <= c.Longitude && c.Longitude <= b.MaxLon
}

// IsZero reports whether the box is unset.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}
