package dbtest

import (
	"strconv"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.wheelz.io/wchain/db"
)

func TestWriteTx(t *testing.T, database db.Database) {
	wTx := database.WriteTx()

	if _, err := wTx.Get([]byte("a")); err != db.ErrKeyNotFound {
		t.Fatal(err)
	}

	err := wTx.Set([]byte("a"), []byte("b"))
	qt.Assert(t, err, qt.IsNil)

	v, err := wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))

	err = wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	// Discard should not give any problem
	wTx.Discard()

	// get value from a new tx after the previous commit
	wTx = database.WriteTx()
	defer wTx.Discard()
	v, err = wTx.Get([]byte("a"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, v, qt.DeepEquals, []byte("b"))
}

func TestIterate(t *testing.T, d db.Database) {
	prefix0 := []byte("a")
	prefix0NumKeys := 20
	prefix1 := []byte("b")
	prefix1NumKeys := 30

	wTx := d.WriteTx()
	defer wTx.Discard()
	for i := 0; i < prefix0NumKeys; i++ {
		key := append(prefix0, []byte(strconv.Itoa(i))...)
		err := wTx.Set(key, []byte(strconv.Itoa(i)))
		qt.Assert(t, err, qt.IsNil)
	}
	for i := 0; i < prefix1NumKeys; i++ {
		key := append(prefix1, []byte(strconv.Itoa(i))...)
		err := wTx.Set(key, []byte(strconv.Itoa(i)))
		qt.Assert(t, err, qt.IsNil)
	}
	err := wTx.Commit()
	qt.Assert(t, err, qt.IsNil)

	seen := 0
	err = d.Iterate(prefix1, func(_, _ []byte) bool {
		seen++
		return true
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, seen, qt.Equals, prefix1NumKeys)

	// early stop
	seen = 0
	err = d.Iterate(prefix0, func(_, _ []byte) bool {
		seen++
		return seen < 5
	})
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, seen, qt.Equals, 5)
}
