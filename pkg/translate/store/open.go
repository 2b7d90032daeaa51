package store

import (
	"context"
	"strings"

	"github.com/tsxcorp/go-regform/pkg/translate"
)

// Open picks a store from a location string: "" is in-memory, a "sqlite:"
// prefix opens the rest as a SQLite DSN, anything else is a file path.
func Open(ctx context.Context, location string) (translate.OverrideStore, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return NewMemory(nil), nil
	case strings.HasPrefix(location, "sqlite:"):
		db, err := OpenSQLite(ctx, strings.TrimPrefix(location, "sqlite:"))
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return NewFile(location), nil
	}
}
