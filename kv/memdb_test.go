package kv

import "testing"

func TestMemDBPutGet(t *testing.T) {
	db := NewMemDB()
	if err := db.Put(CFState, []byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.Get(CFState, []byte("k"))
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("got %q %v %v", v, ok, err)
	}
	if _, ok, _ := db.Get(CFState, []byte("missing")); ok {
		t.Fatal("expected miss")
	}
}

func TestMemDBWriteBatchAtomic(t *testing.T) {
	db := NewMemDB()
	ops := []WriteOp{
		{CF: CFBlock, Key: []byte("a"), Value: []byte("1")},
		{CF: CFHeight, Key: Uint64Key(0), Value: []byte("a")},
	}
	if err := db.WriteBatch(ops); err != nil {
		t.Fatal(err)
	}
	v, ok, _ := db.Get(CFHeight, Uint64Key(0))
	if !ok || string(v) != "a" {
		t.Fatalf("batch write did not apply: %q %v", v, ok)
	}
}

func TestMemDBIterAscendingByHeight(t *testing.T) {
	db := NewMemDB()
	for _, h := range []uint64{3, 1, 2} {
		if err := db.Put(CFHeight, Uint64Key(h), []byte{byte(h)}); err != nil {
			t.Fatal(err)
		}
	}
	it, err := db.Iter(CFHeight, IterStart, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []byte
	for it.Next() {
		got = append(got, it.Entry().Value[0])
	}
	if string(got) != string([]byte{1, 2, 3}) {
		t.Fatalf("expected ascending order, got %v", got)
	}
}

func TestMemDBDeleteViaNilValue(t *testing.T) {
	db := NewMemDB()
	db.Put(CFState, []byte("k"), []byte("v"))
	if err := db.WriteBatch([]WriteOp{{CF: CFState, Key: []byte("k"), Value: nil}}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.Get(CFState, []byte("k")); ok {
		t.Fatal("expected key to be deleted")
	}
}
