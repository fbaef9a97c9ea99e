package cards

import (
	"encoding/json"
	"fmt"
	"os"
)

// Database is the in-memory card dictionary. Read-only after Load.
type Database struct {
	byID  map[string]*Definition
	order []string
}

// Load reads the card manifest from path. Any structural problem in a
// definition, including an unknown effect verb, fails the load.
func Load(path string) (*Database, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card manifest: %w", err)
	}
	return Parse(b)
}

// Parse decodes a manifest from raw JSON (a flat array of definitions).
func Parse(b []byte) (*Database, error) {
	var defs []*Definition
	if err := json.Unmarshal(b, &defs); err != nil {
		return nil, fmt.Errorf("decode card manifest: %w", err)
	}
	db := &Database{byID: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := db.byID[d.CardID]; dup {
			return nil, fmt.Errorf("duplicate card_id %s", d.CardID)
		}
		db.byID[d.CardID] = d
		db.order = append(db.order, d.CardID)
	}
	return db, nil
}

// Card returns the definition for id, or nil when unknown.
func (db *Database) Card(id string) *Definition {
	return db.byID[id]
}

// Len reports the number of loaded definitions.
func (db *Database) Len() int {
	return len(db.order)
}
