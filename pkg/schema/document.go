package schema

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Document wraps a raw event payload and its origin.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, errors.New("schema: raw document is empty")
	}

	clone := append([]byte(nil), raw...)
	return Document{source: src, raw: clone}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// envelope matches the registration API responses, which wrap the event under
// "data" or "event". Bare event objects are accepted too.
type envelope struct {
	Data  *EventSchema `json:"data" yaml:"data"`
	Event *EventSchema `json:"event" yaml:"event"`
}

// Decode parses the payload as JSON, falling back to YAML for hand-written
// fixtures.
func (d Document) Decode() (*EventSchema, error) {
	if len(d.raw) == 0 {
		return nil, errors.New("schema: document is empty")
	}

	event, jsonErr := decodeWith(d.raw, json.Unmarshal)
	if jsonErr == nil {
		return event, nil
	}
	event, yamlErr := decodeWith(d.raw, yaml.Unmarshal)
	if yamlErr == nil {
		return event, nil
	}
	return nil, fmt.Errorf("schema: decode %s: invalid JSON (%v) or YAML (%v)", d.Location(), jsonErr, yamlErr)
}

func decodeWith(raw []byte, unmarshal func([]byte, any) error) (*EventSchema, error) {
	var wrapped envelope
	if err := unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Data != nil && len(wrapped.Data.Fields) > 0:
		return wrapped.Data, nil
	case wrapped.Event != nil && len(wrapped.Event.Fields) > 0:
		return wrapped.Event, nil
	}

	var bare EventSchema
	if err := unmarshal(raw, &bare); err != nil {
		return nil, err
	}
	if bare.ID == "" && bare.Name == "" && len(bare.Fields) == 0 {
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
		if wrapped.Event != nil {
			return wrapped.Event, nil
		}
		return nil, errors.New("no event payload")
	}
	return &bare, nil
}
