package pebbledb

import (
	"testing"

	"go.wheelz.io/wchain/db"
	"go.wheelz.io/wchain/db/internal/dbtest"
)

func TestWriteTx(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	dbtest.TestWriteTx(t, database)
}

func TestIterate(t *testing.T) {
	database, err := New(db.Options{Path: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	dbtest.TestIterate(t, database)
}
