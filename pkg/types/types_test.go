package types

import (
	"encoding/json"
	"testing"
)

func TestParseKey_Exact(t *testing.T) {
	for _, k := range Keys {
		got, ok := ParseKey(string(k))
		if !ok || got != k {
			t.Errorf("ParseKey(%q) = %q, %v; want %q, true", k, got, ok, k)
		}
	}
}

func TestParseKey_RejectsNearMisses(t *testing.T) {
	for _, s := range []string{"", "Alert", "ALERT", "alerts", "dash", " dashboard", "dashboard/", "settings "} {
		if _, ok := ParseKey(s); ok {
			t.Errorf("ParseKey(%q): expected no match", s)
		}
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"", true},
		{"null", true},
		{" null ", true},
		{"{}", true},
		{"{ }", true},
		{"[]", true},
		{"[ ]", true},
		{`""`, true},
		{"0", false},
		{"false", false},
		{`{"a":1}`, false},
		{`[1]`, false},
		{`"x"`, false},
	}
	for _, c := range cases {
		if got := IsEmpty(json.RawMessage(c.raw)); got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestDocument_Get(t *testing.T) {
	d := Document{
		KeyAlert:     json.RawMessage(`{"summary":{"total":3}}`),
		KeyDashboard: json.RawMessage(`null`),
	}
	if _, ok := d.Get(KeyAlert); !ok {
		t.Error("Get(alert): expected hit")
	}
	if _, ok := d.Get(KeyDashboard); ok {
		t.Error("Get(dashboard): null data should be a miss")
	}
	if _, ok := d.Get(KeySettings); ok {
		t.Error("Get(settings): absent key should be a miss")
	}
}
