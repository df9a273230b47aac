// Package schema defines the canonical per-domain schemas rows must conform
// to after normalization, and the column-name canonicalization applied to raw
// provider tables before schema matching.
package schema

import "strings"

// Domain identifies an independent ingestion category. Each domain has its
// own canonical schema and checkpoint namespace.
type Domain string

const (
	DomainPrices  Domain = "prices"
	DomainMacro   Domain = "macro"
	DomainFeature Domain = "feature"
)

// String returns the string representation of Domain.
func (d Domain) String() string {
	return string(d)
}

// IsValid checks if the domain is a known value.
func (d Domain) IsValid() bool {
	return d == DomainPrices || d == DomainMacro || d == DomainFeature
}

// Schema describes a domain's canonical row shape.
type Schema struct {
	Domain Domain

	// Columns is the full canonical column set in canonical order.
	Columns []string

	// Key lists the identifying columns. They must never be null.
	Key []string

	// Required lists the raw fields that must be present after column
	// canonicalization for the table to be usable at all.
	Required []string

	// Numeric lists the value fields coerced to float; coercion failures
	// become nulls, not errors.
	Numeric []string
}

// For returns the canonical schema for a domain.
func For(d Domain) Schema {
	switch d {
	case DomainPrices:
		return Schema{
			Domain:   DomainPrices,
			Columns:  []string{"ticker", "date", "year", "open", "high", "low", "close", "adj_close", "volume"},
			Key:      []string{"ticker", "date"},
			Required: []string{"date", "open", "high", "low", "close", "adj_close", "volume"},
			Numeric:  []string{"open", "high", "low", "close", "adj_close"},
		}
	case DomainMacro:
		return Schema{
			Domain:   DomainMacro,
			Columns:  []string{"zone", "date", "cpi", "gdp", "policy", "unemp"},
			Key:      []string{"zone", "date"},
			Required: []string{"date", "cpi", "gdp", "policy", "unemp"},
			Numeric:  []string{"cpi", "gdp", "policy", "unemp"},
		}
	case DomainFeature:
		return Schema{
			Domain:   DomainFeature,
			Columns:  []string{"feature", "ticker", "date"},
			Key:      []string{"feature", "ticker", "date"},
			Required: []string{"ticker", "date"},
		}
	default:
		return Schema{Domain: d}
	}
}

// columnAliases maps canonicalized provider spellings to canonical fields.
var columnAliases = map[string]string{
	"adjclose":       "adj_close",
	"adjusted_close": "adj_close",
	"datetime":       "date",
	"timestamp":      "date",
	"unemployment":   "unemp",
	"policy_rate":    "policy",
}

// CanonicalColumn normalizes a raw provider column name: trims whitespace,
// lowercases, collapses spaces to underscores, then resolves known aliases.
// "Adj Close", "adj close" and "adjclose" all map to "adj_close".
func CanonicalColumn(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "_")
	if alias, ok := columnAliases[s]; ok {
		return alias
	}
	return s
}

// HasRequired reports whether every required field of s appears in the
// canonicalized column set, and returns the missing fields otherwise.
func (s Schema) HasRequired(canonical map[string]bool) (bool, []string) {
	var missing []string
	for _, field := range s.Required {
		if !canonical[field] {
			missing = append(missing, field)
		}
	}
	return len(missing) == 0, missing
}
