package model

import "testing"

func TestDefaultLabeler(t *testing.T) {
	cases := map[string]string{
		"company_name":  "Company Name",
		"phoneNumber":   "Phone Number",
		"address-line2": "Address Line 2",
		"  email  ":     "Email",
		"URL":           "Url",
		"":              "",
	}
	for in, want := range cases {
		if got := DefaultLabeler(in); got != want {
			t.Errorf("DefaultLabeler(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := (Field{ID: "first_name", Label: " Given name "}).DisplayLabel(); got != "Given name" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := (Field{ID: "first_name"}).DisplayLabel(); got != "First Name" {
		t.Fatalf("unexpected derived label %q", got)
	}
}
