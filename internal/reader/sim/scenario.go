// Package sim implements a simulated handheld RFID reader driven by a YAML
// scenario file.
package sim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes the simulated reader and the tag population it sees.
type Scenario struct {
	Host          string        `yaml:"host"`
	ConnectDelay  time.Duration `yaml:"connect_delay"`
	FailConnect   bool          `yaml:"fail_connect"`
	Producers     int           `yaml:"producers"`
	BatchInterval time.Duration `yaml:"batch_interval"`
	BatchSize     int           `yaml:"batch_size"`
	MaxSeenCount  uint32        `yaml:"max_seen_count"`
	RandomTags    int           `yaml:"random_tags"`
	// MalformedRate is the probability that an entry is delivered with an
	// empty ID.
	MalformedRate float64 `yaml:"malformed_rate"`
	Seed          uint64  `yaml:"seed"`
	Tags          []Tag   `yaml:"tags"`
}

// Tag is an explicitly listed tag. Weight scales how often it is read
// relative to other tags.
type Tag struct {
	EPC    string `yaml:"epc"`
	Weight int    `yaml:"weight"`
}

// DefaultScenario returns the scenario used when no file exists.
func DefaultScenario() Scenario {
	s := Scenario{
		Tags: []Tag{
			{EPC: "E28011606000020D6F3A1B01", Weight: 10},
			{EPC: "E28011606000020D6F3A1B02", Weight: 5},
			{EPC: "E28011606000020D6F3A1B03", Weight: 1},
		},
	}
	s.applyDefaults()
	return s
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(raw)
}

// ParseScenario decodes a YAML scenario and fills in defaults.
func ParseScenario(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// EnsureScenario loads the scenario at path, writing the default scenario
// there first if the file does not exist.
func EnsureScenario(path string) (*Scenario, error) {
	s, err := LoadScenario(path)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	def := DefaultScenario()
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal default scenario: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write default scenario: %w", err)
	}
	return &def, nil
}

func (s *Scenario) applyDefaults() {
	if s.Host == "" {
		s.Host = "RFD8500-SIM"
	}
	if s.Producers == 0 {
		s.Producers = 4
	}
	if s.BatchInterval == 0 {
		s.BatchInterval = 20 * time.Millisecond
	}
	if s.BatchSize == 0 {
		s.BatchSize = 8
	}
	if s.MaxSeenCount == 0 {
		s.MaxSeenCount = 3
	}
	if s.RandomTags == 0 && len(s.Tags) == 0 {
		s.RandomTags = 25
	}
	for i := range s.Tags {
		if s.Tags[i].Weight == 0 {
			s.Tags[i].Weight = 1
		}
	}
}

func (s *Scenario) validate() error {
	if s.Producers < 0 {
		return fmt.Errorf("producers must not be negative")
	}
	if s.BatchInterval < 0 {
		return fmt.Errorf("batch_interval must not be negative")
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("batch_size must not be negative")
	}
	if s.RandomTags < 0 {
		return fmt.Errorf("random_tags must not be negative")
	}
	if s.MalformedRate < 0 || s.MalformedRate > 1 {
		return fmt.Errorf("malformed_rate must be between 0 and 1")
	}
	for _, t := range s.Tags {
		if t.EPC == "" {
			return fmt.Errorf("tag with empty epc")
		}
		if t.Weight < 0 {
			return fmt.Errorf("tag %s has negative weight", t.EPC)
		}
	}
	if len(s.Tags)+s.RandomTags == 0 {
		return fmt.Errorf("scenario has no tags")
	}
	return nil
}

// population expands explicit and generated tags into a weighted list.
func (s *Scenario) population() []Tag {
	pop := make([]Tag, 0, len(s.Tags)+s.RandomTags)
	for _, t := range s.Tags {
		if t.Weight > 0 {
			pop = append(pop, t)
		}
	}
	for i := range s.RandomTags {
		pop = append(pop, Tag{EPC: RandomEPC(i), Weight: 1})
	}
	return pop
}

// RandomEPC returns the generated EPC for population index i.
func RandomEPC(i int) string {
	return fmt.Sprintf("3034%020X", i+1)
}
