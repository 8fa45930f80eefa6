package vdsohook

import (
	"bytes"
	"testing"
)

func TestEmitStubAMD64Sentinel(t *testing.T) {
	const sentinel = 0x12ff34ff56ff78ff

	got := emitStubAMD64(sentinel)
	if len(got) != 12 {
		t.Fatalf("len(stub) = %d, want 12", len(got))
	}

	want := []byte{
		0x48, 0xB8, // REX.W ; MOVABS rax, imm64
		0xff, 0x78, 0xff, 0x56, 0xff, 0x34, 0xff, 0x12, // little-endian 0x12ff34ff56ff78ff
		0xFF, 0xE0, // JMP rax
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("emitStubAMD64(%#x) = % x, want % x", uint64(sentinel), got, want)
	}
}

func TestEmitStubAMD64Zero(t *testing.T) {
	got := emitStubAMD64(0)
	want := []byte{0x48, 0xB8, 0, 0, 0, 0, 0, 0, 0, 0, 0xFF, 0xE0}
	if !bytes.Equal(got, want) {
		t.Fatalf("emitStubAMD64(0) = % x, want % x", got, want)
	}
}
