package models

import (
	"encoding/json"
	"time"
)

// BlockMetadata is derived, non-authoritative data about a single block.
// Fields holds free-form keys; they are flattened into the JSON object.
type BlockMetadata struct {
	AISummary     string         `json:"aiSummary,omitempty"`
	ExtractedTo   string         `json:"extractedTo,omitempty"`
	LastProcessed time.Time      `json:"lastProcessed"`
	CreatedAt     time.Time      `json:"createdAt,omitzero"`
	UpdatedAt     time.Time      `json:"updatedAt,omitzero"`
	Fields        map[string]any `json:"-"`
}

var knownMetadataKeys = map[string]struct{}{
	"aiSummary":     {},
	"extractedTo":   {},
	"lastProcessed": {},
	"createdAt":     {},
	"updatedAt":     {},
}

type blockMetadataAlias BlockMetadata

// MarshalJSON writes known fields and free-form Fields into one object.
func (m BlockMetadata) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(blockMetadataAlias(m))
	if err != nil {
		return nil, err
	}
	if len(m.Fields) == 0 {
		return known, nil
	}
	out := make(map[string]any, len(m.Fields)+len(knownMetadataKeys))
	for k, v := range m.Fields {
		if _, reserved := knownMetadataKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	var base map[string]any
	if err := json.Unmarshal(known, &base); err != nil {
		return nil, err
	}
	for k, v := range base {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads known fields and collects everything else into Fields.
func (m *BlockMetadata) UnmarshalJSON(data []byte) error {
	var alias blockMetadataAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = BlockMetadata(alias)
	for k, v := range raw {
		if _, known := knownMetadataKeys[k]; known {
			continue
		}
		if m.Fields == nil {
			m.Fields = make(map[string]any)
		}
		m.Fields[k] = v
	}
	return nil
}
