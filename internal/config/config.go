package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed variants/*.yaml
var builtins embed.FS

// DefaultDepot is the source name the platform uses for trains bought from the bank.
const DefaultDepot = "The Depot"

// Private is a private company and its face value.
type Private struct {
	Name  string `yaml:"name"`
	Value int    `yaml:"value"`
}

// Variant holds the static reference data of one game variant.
type Variant struct {
	Name            string    `yaml:"name"`
	StartingCapital int       `yaml:"starting_capital"`
	TotalShares     int       `yaml:"total_shares"`
	InitialRound    string    `yaml:"initial_round"`
	InitialPhase    string    `yaml:"initial_phase"`
	Depot           string    `yaml:"depot"`
	Companies       []string  `yaml:"companies"`
	Privates        []Private `yaml:"privates"`
	Trains          []string  `yaml:"trains"`
}

// Load resolves a built-in variant by name first, then treats nameOrPath as
// a YAML file.
func Load(nameOrPath string) (*Variant, error) {
	if data, err := builtins.ReadFile(path.Join("variants", nameOrPath+".yaml")); err == nil {
		return Parse(data)
	}

	data, err := os.ReadFile(nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("unknown variant %q (built-in: %s): %w", nameOrPath, strings.Join(Builtins(), ", "), err)
	}
	return Parse(data)
}

// MustLoad is Load for built-in variants known to exist.
func MustLoad(name string) *Variant {
	v, err := Load(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Builtins lists the embedded variant names.
func Builtins() []string {
	entries, err := builtins.ReadDir("variants")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Parse decodes a YAML variant and applies defaults.
func Parse(data []byte) (*Variant, error) {
	var v Variant
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse variant: %w", err)
	}
	if v.TotalShares == 0 {
		v.TotalShares = 10
	}
	if v.Depot == "" {
		v.Depot = DefaultDepot
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate rejects variants the replay cannot work with.
func (v *Variant) Validate() error {
	var errs []error
	if len(v.Companies) == 0 {
		errs = append(errs, errors.New("no companies"))
	}
	if len(v.Trains) == 0 {
		errs = append(errs, errors.New("no train types"))
	}
	if v.StartingCapital <= 0 {
		errs = append(errs, fmt.Errorf("starting capital must be positive, got %d", v.StartingCapital))
	}
	if v.TotalShares <= 0 || 100%v.TotalShares != 0 {
		errs = append(errs, fmt.Errorf("total shares must divide 100, got %d", v.TotalShares))
	}

	seen := make(map[string]bool)
	check := func(kind, name string) {
		if name == "" {
			errs = append(errs, fmt.Errorf("empty %s name", kind))
			return
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate name %q", name))
		}
		seen[name] = true
	}
	for _, c := range v.Companies {
		check("company", c)
	}
	for _, p := range v.Privates {
		check("private", p.Name)
	}
	trains := make(map[string]bool)
	for _, t := range v.Trains {
		if trains[t] {
			errs = append(errs, fmt.Errorf("duplicate train type %q", t))
		}
		trains[t] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid variant %q: %w", v.Name, errors.Join(errs...))
	}
	return nil
}

// IsCompany reports whether name is one of the variant's companies.
func (v *Variant) IsCompany(name string) bool {
	for _, c := range v.Companies {
		if c == name {
			return true
		}
	}
	return false
}

// PrivateValues returns the private name to face value table.
func (v *Variant) PrivateValues() map[string]int {
	values := make(map[string]int, len(v.Privates))
	for _, p := range v.Privates {
		values[p.Name] = p.Value
	}
	return values
}

// SharePercent is the percentage one share represents.
func (v *Variant) SharePercent() int {
	return 100 / v.TotalShares
}
