package schema

import (
	"reflect"
	"testing"
)

func TestCanonicalColumn(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Adj Close", "adj_close"},
		{"  adj close ", "adj_close"},
		{"adjclose", "adj_close"},
		{"Adjusted_Close", "adj_close"},
		{"Date", "date"},
		{"DateTime", "date"},
		{"timestamp", "date"},
		{"Unemployment", "unemp"},
		{"policy_rate", "policy"},
		{"CLOSE", "close"},
		{"weird   multi  space", "weird_multi_space"},
	}
	for _, tc := range cases {
		if got := CanonicalColumn(tc.in); got != tc.want {
			t.Errorf("CanonicalColumn(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestForKnownDomains(t *testing.T) {
	prices := For(DomainPrices)
	if prices.Domain != DomainPrices {
		t.Fatalf("wrong domain: %v", prices.Domain)
	}
	if !contains(prices.Required, "date") || !contains(prices.Required, "close") {
		t.Errorf("price schema required = %v", prices.Required)
	}

	macro := For(DomainMacro)
	if !contains(macro.Columns, "cpi") || !contains(macro.Columns, "unemp") {
		t.Errorf("macro schema columns = %v", macro.Columns)
	}

	feature := For(DomainFeature)
	if !reflect.DeepEqual(feature.Key, []string{"feature", "ticker", "date"}) {
		t.Errorf("feature schema key = %v", feature.Key)
	}
}

func TestHasRequired(t *testing.T) {
	sch := For(DomainPrices)

	ok, missing := sch.HasRequired(map[string]bool{
		"date": true, "open": true, "high": true, "low": true,
		"close": true, "adj_close": true, "volume": true,
	})
	if !ok || missing != nil {
		t.Errorf("expected all required present, missing = %v", missing)
	}

	ok, missing = sch.HasRequired(map[string]bool{"date": true})
	if ok {
		t.Error("expected missing fields")
	}
	if !contains(missing, "close") {
		t.Errorf("missing = %v, want close among them", missing)
	}
}

func TestInvalidDomain(t *testing.T) {
	if Domain("bogus").IsValid() {
		t.Error("bogus domain should be invalid")
	}
	if sch := For(Domain("bogus")); len(sch.Columns) != 0 {
		t.Errorf("unknown domain should have empty schema, got %v", sch.Columns)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
