package wire

import (
	"encoding/json"
	"testing"
)

func TestMissRoundTrip(t *testing.T) {
	if !IsMiss(Miss()) {
		t.Fatalf("Miss() not recognized")
	}
	// each call returns a fresh slice
	a, b := Miss(), Miss()
	a[0] = 'x'
	if !IsMiss(b) {
		t.Fatalf("Miss() slices alias each other")
	}
}

func TestMissRejectsNearMisses(t *testing.T) {
	m := Miss()
	cases := [][]byte{
		nil,
		{},
		m[:5],
		append(append([]byte{}, m...), 0),
		{0, 'T', 'C', 'N', version + 1, kindMiss},
		{0, 'T', 'C', 'N', version, kindMiss + 1},
		{'x', 'T', 'C', 'N', version, kindMiss},
	}
	for i, c := range cases {
		if IsMiss(c) {
			t.Fatalf("case %d: %x wrongly recognized as miss", i, c)
		}
	}
}

func TestMissNeverProducedByJSON(t *testing.T) {
	for _, v := range []any{nil, "", 0, false, []any{}, map[string]any{}, string(Miss())} {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		if IsMiss(b) {
			t.Fatalf("json output %q collides with miss marker", b)
		}
	}
}
