// Package schemas embeds the JSON Schemas for the persisted key-value stores.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names.
const (
	ResolutionStore = "resolution_store.schema.json"
	IdentifierStore = "identifier_store.schema.json"
	SnapshotStore   = "snapshot_store.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Load returns the raw schema document with the given file name.
func Load(name string) ([]byte, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %s: %w", name, err)
	}
	return data, nil
}

// Names lists every embedded schema file.
func Names() []string {
	return []string{ResolutionStore, IdentifierStore, SnapshotStore}
}
