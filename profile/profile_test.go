package profile

import (
	"encoding/json"
	"testing"
)

func TestProfileJSONCarriesEmail(t *testing.T) {
	// WHAT: A real email appears in the marshalled profile as "email",
	// with "email_is_fallback" false; the internal tag never leaks.
	// WHY: The email is the record's most valuable field; the wire shape
	// must expose it.
	p := Profile{
		Candidate: Candidate{Name: "Jane Doe", URL: "https://x/in/jane"},
		Email:     RealEmail("jane@acme.example"),
	}
	data, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["email"] != "jane@acme.example" {
		t.Errorf("email: %v", out["email"])
	}
	if out["email_is_fallback"] != false {
		t.Errorf("email_is_fallback: %v", out["email_is_fallback"])
	}
	if _, ok := out["Tag"]; ok {
		t.Error("internal tag leaked into JSON")
	}
}

func TestProfileJSONEmailVariants(t *testing.T) {
	// WHAT: A missing email omits the address; a fallback sets the flag.
	cases := []struct {
		name     string
		email    Email
		wantAddr bool
		wantFlag bool
	}{
		{"missing", MissingEmail(), false, false},
		{"fallback", FallbackEmail(), false, true},
		{"real", RealEmail("a@b.example"), true, false},
	}
	for _, c := range cases {
		data, err := json.Marshal(&Profile{Email: c.email})
		if err != nil {
			t.Fatalf("%s: marshal: %v", c.name, err)
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s: unmarshal: %v", c.name, err)
		}
		if _, ok := out["email"]; ok != c.wantAddr {
			t.Errorf("%s: email present=%v, want %v", c.name, ok, c.wantAddr)
		}
		if out["email_is_fallback"] != c.wantFlag {
			t.Errorf("%s: email_is_fallback: %v", c.name, out["email_is_fallback"])
		}
	}
}
