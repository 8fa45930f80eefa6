package vdsohook

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEmitStubARM64Sentinel(t *testing.T) {
	const sentinel = 0x12ff34ff56ff78ff

	got := emitStubARM64(sentinel)
	if len(got) != 20 {
		t.Fatalf("len(stub) = %d, want 20", len(got))
	}

	// Expected instruction words, computed independently of emitStubARM64's
	// own lane helper: MOVZ x16,#0x78ff ; MOVK x16,#0x56ff,LSL#16 ;
	// MOVK x16,#0x34ff,LSL#32 ; MOVK x16,#0x12ff,LSL#48 ; BR x16.
	want := []uint32{
		0xD28F1FF0, // movz x16, #0x78ff
		0xF2AADFF0, // movk x16, #0x56ff, lsl #16
		0xF2C69FF0, // movk x16, #0x34ff, lsl #32
		0xF2E25FF0, // movk x16, #0x12ff, lsl #48
		0xD61F0200, // br x16
	}

	var wantBytes bytes.Buffer
	for _, w := range want {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], w)
		wantBytes.Write(b[:])
	}

	if !bytes.Equal(got, wantBytes.Bytes()) {
		t.Fatalf("emitStubARM64(%#x) = % x, want % x", uint64(sentinel), got, wantBytes.Bytes())
	}
}

func TestEmitStubARM64LaneOrdering(t *testing.T) {
	// Each lane's 16 bits must appear in its own instruction, in ascending
	// shift order, regardless of overlap between lane values.
	const target = 0xAAAA_BBBB_CCCC_DDDD

	got := emitStubARM64(target)
	words := make([]uint32, 5)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(got[i*4 : i*4+4])
	}

	lanes := []uint32{0xDDDD, 0xCCCC, 0xBBBB, 0xAAAA}
	for i, lane := range lanes {
		gotLane := (words[i] >> 5) & 0xFFFF
		if gotLane != lane {
			t.Errorf("instruction %d lane = %#x, want %#x", i, gotLane, lane)
		}
		gotRd := words[i] & 0x1F
		if gotRd != scratchX16 {
			t.Errorf("instruction %d Rd = %d, want %d", i, gotRd, scratchX16)
		}
	}

	brRn := (words[4] >> 5) & 0x1F
	if brRn != scratchX16 {
		t.Errorf("br Rn = %d, want %d", brRn, scratchX16)
	}
}
