package board

import (
	"encoding/json"
	"fmt"
	"os"
)

// CardRecord is the persistence form of one evidence card.
type CardRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Pos   Vec    `json:"pos"`
	Size  Vec    `json:"size"`
}

// Document is a full board snapshot: cards plus connection records.
type Document struct {
	Cards       []CardRecord       `json:"cards"`
	Connections []ConnectionRecord `json:"connections"`
}

// SaveDocument writes a board document as JSON.
func SaveDocument(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write board: %w", err)
	}
	return nil
}

// LoadDocument reads a board document from a JSON file.
func LoadDocument(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read board: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse board: %w", err)
	}
	return doc, nil
}
