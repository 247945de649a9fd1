package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
)

const transcriptVersion = 1

// Transcript is the exported form of a conversation.
type Transcript struct {
	Version    int         `yaml:"version"`
	PersonaID  string      `yaml:"persona,omitempty"`
	ExportedAt time.Time   `yaml:"exported_at"`
	Turns      []chat.Turn `yaml:"turns"`
}

// SaveTranscript writes turns to path as YAML, replacing any existing file.
func SaveTranscript(path, personaID string, turns []chat.Turn) error {
	doc := Transcript{
		Version:    transcriptVersion,
		PersonaID:  personaID,
		ExportedAt: time.Now().UTC(),
		Turns:      turns,
	}
	if doc.Turns == nil {
		doc.Turns = []chat.Turn{}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode transcript")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrap(err, "create transcript directory")
		}
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return errors.Wrapf(err, "write transcript %s", path)
	}
	return nil
}

// LoadTranscript reads a transcript written by SaveTranscript.
func LoadTranscript(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, errors.Wrapf(err, "read transcript %s", path)
	}

	var doc Transcript
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Transcript{}, errors.Wrapf(err, "decode transcript %s", path)
	}
	if doc.Version > transcriptVersion {
		return Transcript{}, errors.Errorf("transcript %s has unsupported version %d", path, doc.Version)
	}
	for i, turn := range doc.Turns {
		if !turn.Role.Valid() {
			return Transcript{}, errors.Errorf("transcript %s: turn %d has invalid role %q", path, i, turn.Role)
		}
	}
	return doc, nil
}
