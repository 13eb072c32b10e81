package models

import "time"

// DocumentInfo is the lightweight listing entry for a markdown document.
type DocumentInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentBlocks is a parsed document: its blocks plus the warnings raised
// while scanning it.
type DocumentBlocks struct {
	Path     string    `json:"path"`
	Title    string    `json:"title,omitempty"`
	Checksum string    `json:"checksum"`
	Blocks   []Block   `json:"blocks"`
	Warnings []string  `json:"warnings,omitempty"`
	ReadAt   time.Time `json:"read_at"`
}
