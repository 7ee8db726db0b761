package providers

import (
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"golang.org/x/crypto/sha3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Provider holds the per payment platform rules used by quotes and maker registration.
type Provider struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Verifier   string  `json:"verifier"`
	ETA        string  `json:"eta"`
	DefaultFee float64 `json:"defaultFee"`

	normalize func(string) string
	validate  func(string) []string
}

func (p Provider) Normalize(raw string) string {
	return p.normalize(raw)
}

// Validate returns the format errors for a raw payee id. Empty means valid.
func (p Provider) Validate(raw string) []string {
	if p.validate == nil {
		return nil
	}
	return p.validate(raw)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

var lower = cases.Lower(language.Und)

func handleNormalize(raw string) string {
	ascii := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(raw)))
	return nonAlnum.ReplaceAllString(ascii, "")
}

func lowerNormalize(raw string) string {
	return lower.String(strings.TrimSpace(raw))
}

var table = map[string]Provider{
	"venmo": {
		ID:         "venmo",
		Name:       "Venmo",
		ETA:        "2-5 minutes",
		DefaultFee: 0.01,
		normalize:  handleNormalize,
		validate: func(raw string) []string {
			if len(raw) < 3 {
				return []string{"Venmo username must be at least 3 characters"}
			}
			return nil
		},
	},
	"cashapp": {
		ID:         "cashapp",
		Name:       "Cash App",
		ETA:        "5-10 minutes",
		DefaultFee: 0.015,
		normalize:  handleNormalize,
		validate: func(raw string) []string {
			if !strings.HasPrefix(raw, "$") || len(raw) < 4 {
				return []string{"Cash App cashtag must start with $ and be at least 4 characters"}
			}
			return nil
		},
	},
	"zelle": {
		ID:         "zelle",
		Name:       "Zelle",
		ETA:        "5-10 minutes",
		DefaultFee: 0.01,
		normalize:  lowerNormalize,
		validate: func(raw string) []string {
			if !strings.Contains(raw, "@") {
				return []string{"Zelle requires an email address"}
			}
			return nil
		},
	},
	"wise": {
		ID:         "wise",
		Name:       "Wise",
		ETA:        "5-10 minutes",
		DefaultFee: 0.01,
		normalize:  lowerNormalize,
	},
	"revolut": {
		ID:         "revolut",
		Name:       "Revolut",
		ETA:        "5-10 minutes",
		DefaultFee: 0.01,
		normalize:  lowerNormalize,
	},
}

func init() {
	for id, p := range table {
		p.Verifier = id + "Verifier"
		table[id] = p
	}
}

// Key folds a user supplied provider name ("Cash App", "VENMO") to a table id.
func Key(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "")
}

func Lookup(name string) (Provider, bool) {
	p, ok := table[Key(name)]
	return p, ok
}

// All returns the providers sorted by id.
func All() []Provider {
	out := make([]Provider, 0, len(table))
	for _, p := range table {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HashPayeeID returns the keccak-256 of a normalized payee id as 0x-prefixed hex.
func HashPayeeID(normalized string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(normalized))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
