package environment

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Institutions is the set of valid institution codes of one environment.
type Institutions struct {
	names map[string]string
}

// NewInstitutions returns a registry of code -> name.
func NewInstitutions(names map[string]string) *Institutions {
	i := &Institutions{names: make(map[string]string, len(names))}
	for code, name := range names {
		i.names[code] = name
	}
	return i
}

// Contains reports whether code is a known institution.
func (i *Institutions) Contains(code string) bool {
	if i == nil {
		return false
	}
	_, ok := i.names[strings.TrimSpace(code)]
	return ok
}

// Name returns the institution name for code.
func (i *Institutions) Name(code string) (string, bool) {
	if i == nil {
		return "", false
	}
	name, ok := i.names[strings.TrimSpace(code)]
	return name, ok
}

// Len returns the number of institutions.
func (i *Institutions) Len() int {
	if i == nil {
		return 0
	}
	return len(i.names)
}

// LoadInstitutions reads the institution registry CSV (Environment, Code, Name) and returns a
// registry per environment. The Environment column must be "production" or "non-production".
func LoadInstitutions(path string) (map[Name]*Institutions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseInstitutions(data)
}

// ParseInstitutions parses institution registry CSV data.
func ParseInstitutions(data []byte) (map[Name]*Institutions, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse institutions csv: %w", err)
	}

	registries := map[Name]*Institutions{
		Production:    {names: map[string]string{}},
		NonProduction: {names: map[string]string{}},
	}

	for _, record := range records {
		// skip header row
		if record[0] == "Environment" {
			continue
		}
		if len(record) != 3 {
			return nil, fmt.Errorf("invalid institution record: %v", record)
		}

		name := Name(record[0])
		if name != Production && name != NonProduction {
			return nil, fmt.Errorf("invalid institution record - unknown environment %q: %v", record[0], record)
		}

		code := strings.TrimSpace(record[1])
		if code == "" {
			return nil, fmt.Errorf("invalid institution record - code not set: %v", record)
		}
		if _, exists := registries[name].names[code]; exists {
			return nil, fmt.Errorf("duplicate institution code %s in %s", code, name)
		}

		registries[name].names[code] = strings.TrimSpace(record[2])
	}

	return registries, nil
}
