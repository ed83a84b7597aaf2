package environment

import (
	"testing"
)

func TestParseInstitutions(t *testing.T) {
	data := []byte(`Environment,Code,Name
production,40002,BANAMEX
production,40012,BBVA MEXICO
non-production,90646,STP
`)

	registries, err := ParseInstitutions(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prod := registries[Production]
	if prod.Len() != 2 || !prod.Contains("40002") || !prod.Contains(" 40012 ") {
		t.Errorf("unexpected production registry: %d entries", prod.Len())
	}
	if name, ok := prod.Name("40012"); !ok || name != "BBVA MEXICO" {
		t.Errorf("Name(40012) = %q, %v", name, ok)
	}
	if prod.Contains("90646") {
		t.Error("non-production institution found in production registry")
	}
	if !registries[NonProduction].Contains("90646") {
		t.Error("expected 90646 in non-production registry")
	}
}

func TestParseInstitutions_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown environment", "staging,40002,BANAMEX\n"},
		{"missing code", "production,,BANAMEX\n"},
		{"wrong column count", "production,40002\n"},
		{"duplicate code", "production,40002,A\nproduction,40002,B\n"},
		{"malformed csv", "production,\"40002,A\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseInstitutions([]byte(tt.data)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestInstitutions_Nil(t *testing.T) {
	var i *Institutions
	if i.Contains("40002") || i.Len() != 0 {
		t.Error("nil registry should be empty")
	}
}

func TestNewInstitutions(t *testing.T) {
	i := NewInstitutions(map[string]string{"40002": "BANAMEX"})
	if !i.Contains("40002") {
		t.Error("expected 40002")
	}
}
