package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FamilyCode is one commodity entry of a family table.
type FamilyCode struct {
	Code string `toml:"code"`
	Name string `toml:"name"`
}

// Family restricts commodity selection for materials of one kind (springs,
// bolts, ...) to a closed list of codes under a single class.
type Family struct {
	Name      string       `toml:"name"`
	Keywords  []string     `toml:"keywords"`
	Class     string       `toml:"class"`
	ClassName string       `toml:"class_name"`
	Fallback  string       `toml:"fallback"`
	Codes     []FamilyCode `toml:"code"`
}

type Families struct {
	Version  string   `toml:"version"`
	Families []Family `toml:"family"`
}

// HasFallback reports whether the table names a fallback commodity.
func (f Family) HasFallback() bool {
	return f.Fallback != ""
}

// FallbackName returns the display name of the fallback code, if listed.
func (f Family) FallbackName() string {
	for _, c := range f.Codes {
		if c.Code == f.Fallback {
			return c.Name
		}
	}
	return ""
}

// Allows reports whether commodity is a legal choice for this family.
func (f Family) Allows(commodity string) bool {
	if commodity == f.Fallback && f.HasFallback() {
		return true
	}
	for _, c := range f.Codes {
		if c.Code == commodity {
			return true
		}
	}
	return false
}

// ByClass returns the family whose class prefix matches commodity.
func (fs *Families) ByClass(commodity string) (Family, bool) {
	if fs == nil || len(commodity) != 8 {
		return Family{}, false
	}
	for _, f := range fs.Families {
		if len(f.Class) == 8 && commodity[:6] == f.Class[:6] {
			return f, true
		}
	}
	return Family{}, false
}

// WithoutFallback lists the names of tables that have no fallback code.
func (fs *Families) WithoutFallback() []string {
	if fs == nil {
		return nil
	}
	var names []string
	for _, f := range fs.Families {
		if !f.HasFallback() {
			names = append(names, f.Name)
		}
	}
	return names
}

// LoadFamilies reads and validates a family table file. An empty path yields
// an empty table set.
func LoadFamilies(path string) (*Families, error) {
	if path == "" {
		return &Families{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read families file '%s': %w", path, err)
	}
	return ParseFamilies(data)
}

func ParseFamilies(data []byte) (*Families, error) {
	var fs Families
	if err := toml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("failed to parse families TOML: %w", err)
	}
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	return &fs, nil
}

func (fs *Families) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, f := range fs.Families {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			errs = append(errs, errors.New("family without name"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("family %s: declared twice", name))
		}
		seen[name] = true

		if len(f.Class) != 8 || !strings.HasSuffix(f.Class, "00") {
			errs = append(errs, fmt.Errorf("family %s: class %q is not an 8-digit class code", name, f.Class))
			continue
		}
		if len(f.Codes) == 0 {
			errs = append(errs, fmt.Errorf("family %s: no codes", name))
		}
		for _, c := range f.Codes {
			if len(c.Code) != 8 || c.Code[:6] != f.Class[:6] {
				errs = append(errs, fmt.Errorf("family %s: code %q is outside class %s", name, c.Code, f.Class))
			}
		}
		if f.HasFallback() && f.FallbackName() == "" {
			errs = append(errs, fmt.Errorf("family %s: fallback %q is not one of its codes", name, f.Fallback))
		}
	}
	return errors.Join(errs...)
}
