package interpret

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one canned simulation answer.
type CatalogEntry struct {
	InterpretedText   string `yaml:"interpretedText" json:"interpretedText"`
	Command           string `yaml:"command" json:"command"`
	Confidence        int    `yaml:"confidence" json:"confidence"`
	ActionDescription string `yaml:"actionDescription" json:"actionDescription"`
}

var errEmptyCatalog = errors.New("catalog has no entries")

// DefaultCatalog returns the built-in simulation answers.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{InterpretedText: "Thumbs up", Command: "approve", Confidence: 92, ActionDescription: "Gesture indicates approval or agreement"},
		{InterpretedText: "Peace sign", Command: "victory", Confidence: 88, ActionDescription: "Two-finger peace/victory gesture detected"},
		{InterpretedText: "Message Robin", Command: "send_message", Confidence: 85, ActionDescription: "Initiating message composition to Robin"},
		{InterpretedText: "Play music", Command: "play_music", Confidence: 90, ActionDescription: "Opening music player application"},
		{InterpretedText: "Open WhatsApp", Command: "open_whatsapp", Confidence: 87, ActionDescription: "Launching WhatsApp application"},
	}
}

// LoadCatalog reads a YAML (or JSON) list of catalog entries.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var entries []CatalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if err := validateCatalog(entries); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return entries, nil
}

// LoadOrSeedCatalog loads path, first writing the built-in catalog there when
// no file exists yet. seeded reports whether the file was written.
func LoadOrSeedCatalog(path string) (entries []CatalogEntry, seeded bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		if err := WriteCatalog(path, DefaultCatalog()); err != nil {
			return nil, false, err
		}
		seeded = true
	}
	entries, err = LoadCatalog(path)
	if err != nil {
		return nil, seeded, err
	}
	return entries, seeded, nil
}

// WriteCatalog writes entries as YAML.
func WriteCatalog(path string, entries []CatalogEntry) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

func validateCatalog(entries []CatalogEntry) error {
	if len(entries) == 0 {
		return errEmptyCatalog
	}
	for i, e := range entries {
		if strings.TrimSpace(e.InterpretedText) == "" {
			return fmt.Errorf("entry %d: interpretedText is empty", i)
		}
		if e.Confidence < 0 || e.Confidence > 100 {
			return fmt.Errorf("entry %d: confidence %d outside [0,100]", i, e.Confidence)
		}
	}
	return nil
}
