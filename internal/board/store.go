package board

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SlotStore keeps named board snapshots in a SQLite database, one JSON
// document per slot. Saving an existing slot overwrites it.
type SlotStore struct {
	db *sql.DB
}

// SlotInfo describes one stored snapshot.
type SlotInfo struct {
	Name      string
	SavedAt   time.Time
	CardCount int
	ConnCount int
}

// OpenSlotStore opens (creating if needed) the slot database at path.
func OpenSlotStore(path string) (*SlotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open slot store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &SlotStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SlotStore) Close() error { return s.db.Close() }

func (s *SlotStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		name TEXT PRIMARY KEY,
		saved_at TEXT NOT NULL,
		card_count INTEGER NOT NULL,
		conn_count INTEGER NOT NULL,
		document TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate slot store: %w", err)
	}
	return nil
}

// Save stores a board document under name, replacing any previous snapshot.
func (s *SlotStore) Save(name string, doc Document) error {
	blob, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO slots (name, saved_at, card_count, conn_count, document)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   saved_at=excluded.saved_at,
		   card_count=excluded.card_count,
		   conn_count=excluded.conn_count,
		   document=excluded.document`,
		name, time.Now().UTC().Format(time.RFC3339), len(doc.Cards), len(doc.Connections), string(blob),
	)
	if err != nil {
		return fmt.Errorf("save slot %q: %w", name, err)
	}
	return nil
}

// Load retrieves the document stored under name.
func (s *SlotStore) Load(name string) (Document, error) {
	var doc Document
	var blob string
	err := s.db.QueryRow(`SELECT document FROM slots WHERE name = ?`, name).Scan(&blob)
	if err == sql.ErrNoRows {
		return doc, fmt.Errorf("slot %q not found", name)
	}
	if err != nil {
		return doc, fmt.Errorf("load slot %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(blob), &doc); err != nil {
		return doc, fmt.Errorf("parse slot %q: %w", name, err)
	}
	return doc, nil
}

// List returns all stored slots, newest first.
func (s *SlotStore) List() ([]SlotInfo, error) {
	rows, err := s.db.Query(
		`SELECT name, saved_at, card_count, conn_count FROM slots ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()
	var out []SlotInfo
	for rows.Next() {
		var info SlotInfo
		var savedAt string
		if err := rows.Scan(&info.Name, &savedAt, &info.CardCount, &info.ConnCount); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		info.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a slot; deleting a missing slot is not an error.
func (s *SlotStore) Delete(name string) error {
	_, err := s.db.Exec(`DELETE FROM slots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete slot %q: %w", name, err)
	}
	return nil
}
