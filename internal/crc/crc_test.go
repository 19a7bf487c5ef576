package crc

import "testing"

func TestUpdate8Empty(t *testing.T) {
	if got := Update8(0, ATMTable, nil); got != 0 {
		t.Fatalf("Update8(0, nil) = %d, want 0", got)
	}
}

func TestUpdate16Empty(t *testing.T) {
	if got := Update16(0, IBMTable, nil); got != 0 {
		t.Fatalf("Update16(0, nil) = %d, want 0", got)
	}
}

func TestUpdate8Incremental(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	whole := Update8(0, ATMTable, data)

	var split uint8
	split = Update8(split, ATMTable, data[:2])
	split = Update8(split, ATMTable, data[2:])

	if split != whole {
		t.Fatalf("incremental Update8 = %d, whole-slice Update8 = %d", split, whole)
	}
}

func TestUpdate16Incremental(t *testing.T) {
	data := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	whole := Update16(0, IBMTable, data)

	var split uint16
	split = Update16(split, IBMTable, data[:3])
	split = Update16(split, IBMTable, data[3:])

	if split != whole {
		t.Fatalf("incremental Update16 = %d, whole-slice Update16 = %d", split, whole)
	}
}

func TestMakeTable8MatchesPrecomputed(t *testing.T) {
	t8 := MakeTable8(ATM)
	for i := range t8 {
		if t8[i] != ATMTable[i] {
			t.Fatalf("MakeTable8(ATM)[%d] = %#x, want %#x", i, t8[i], ATMTable[i])
		}
	}
}
