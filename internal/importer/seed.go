package importer

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/diana-archive/gazetteer/internal/errors"
)

// Seed is the reference data loaded before any feature.
type Seed struct {
	Languages  []SeedLanguage `yaml:"languages"`
	Periods    []SeedPeriod   `yaml:"periods"`
	PlaceTypes []string       `yaml:"place_types"`
}

// SeedLanguage is a language with its abbreviation, the natural key.
type SeedLanguage struct {
	Name         string `yaml:"name"`
	Abbreviation string `yaml:"abbreviation"`
}

// SeedPeriod is a period with optional bounding years.
type SeedPeriod struct {
	Text      string  `yaml:"text"`
	StartYear *uint16 `yaml:"start_year"`
	EndYear   *uint16 `yaml:"end_year"`
}

// DefaultSeed returns the languages every gazetteer starts with.
func DefaultSeed() *Seed {
	return &Seed{
		Languages: []SeedLanguage{
			{Name: "English", Abbreviation: "en"},
			{Name: "French", Abbreviation: "fr"},
			{Name: "Kinyarwanda", Abbreviation: "rw"},
			{Name: "Kiswahili", Abbreviation: "sw"},
		},
		PlaceTypes: []string{"street", "building"},
	}
}

// LoadSeed reads a YAML seed file. An empty path returns DefaultSeed.
// Languages of the default seed are always included.
func LoadSeed(fs afero.Fs, path string) (*Seed, error) {
	seed := DefaultSeed()
	if path == "" {
		return seed, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read seed file: %w", err)).
			Component("importer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var file Seed
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.New(fmt.Errorf("failed to parse seed file: %w", err)).
			Component("importer").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	for _, l := range file.Languages {
		if l.Abbreviation == "" {
			return nil, errors.Newf("seed language %q has no abbreviation", l.Name).
				Component("importer").
				Category(errors.CategoryValidation).
				Context("path", path).
				Build()
		}
	}

	seed.merge(&file)
	return seed, nil
}

// merge appends entries of other whose natural key is not yet present.
func (s *Seed) merge(other *Seed) {
	abbrs := make(map[string]bool, len(s.Languages))
	for _, l := range s.Languages {
		abbrs[l.Abbreviation] = true
	}
	for _, l := range other.Languages {
		if !abbrs[l.Abbreviation] {
			s.Languages = append(s.Languages, l)
			abbrs[l.Abbreviation] = true
		}
	}

	periods := make(map[string]bool, len(s.Periods))
	for _, p := range s.Periods {
		periods[p.Text] = true
	}
	for _, p := range other.Periods {
		if !periods[p.Text] {
			s.Periods = append(s.Periods, p)
			periods[p.Text] = true
		}
	}

	types := make(map[string]bool, len(s.PlaceTypes))
	for _, t := range s.PlaceTypes {
		types[t] = true
	}
	for _, t := range other.PlaceTypes {
		if !types[t] {
			s.PlaceTypes = append(s.PlaceTypes, t)
			types[t] = true
		}
	}
}
