package metadb

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"go.wheelz.io/wchain/db"
	"go.wheelz.io/wchain/db/mongodb"
	"go.wheelz.io/wchain/db/pebbledb"
)

// New opens (or creates) a Database of the given type.
func New(typ, dir string) (db.Database, error) {
	var database db.Database
	var err error
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		database, err = pebbledb.New(opts)
		if err != nil {
			return nil, err
		}
	case db.TypeMongo:
		database, err = mongodb.New(opts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q %q",
			typ, db.TypePebble, db.TypeMongo)
	}
	return database, nil
}

// ForTest returns the db type used by the test helpers.
func ForTest() (typ string) {
	return cmp.Or(os.Getenv("WCHAIN_DB_TYPE"), "pebble") // default to Pebble, just like wchainnode
}

// NewTest opens a throwaway Database in a test temporary directory.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { database.Close() })
	return database
}
