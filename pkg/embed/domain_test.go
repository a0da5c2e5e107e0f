package embed_test

import (
	"testing"

	"github.com/goliatone/go-formflow/pkg/embed"
)

func TestDomainFromURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "https://www.example.com/page?x=1", want: "example.com"},
		{raw: "http://Shop.Example.COM:8080", want: "shop.example.com"},
		{raw: "example.org/landing", want: "example.org"},
		{raw: "https://bücher.example/", want: "xn--bcher-kva.example"},
		{raw: "", wantErr: true},
		{raw: "https:///path-only", wantErr: true},
	}
	for _, tt := range tests {
		got, err := embed.DomainFromURL(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error, got %q", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("%q: want %q, got %q", tt.raw, tt.want, got)
		}
	}
}

func TestMatchDomain(t *testing.T) {
	allow := []string{"example.com", "*.partner.io", "WWW.Upper.dev"}
	tests := map[string]bool{
		"example.com":        true,
		"www.example.com":    true,
		"shop.example.com":   false,
		"partner.io":         true,
		"a.b.partner.io":     true,
		"notpartner.io":      false,
		"upper.dev":          true,
		"":                   false,
		"example.com.evil.x": false,
	}
	for domain, want := range tests {
		if got := embed.MatchDomain(allow, domain); got != want {
			t.Fatalf("%q: want %v, got %v", domain, want, got)
		}
	}
}
