package vdsohook

import (
	"errors"
	"testing"
)

func TestEmitStubDispatch(t *testing.T) {
	amd64Stub, err := EmitStub(ArchX86_64, 0x1234)
	if err != nil {
		t.Fatalf("EmitStub(ArchX86_64) error = %v", err)
	}
	if len(amd64Stub) != ArchX86_64.StubLen() {
		t.Errorf("len(EmitStub(ArchX86_64)) = %d, want %d", len(amd64Stub), ArchX86_64.StubLen())
	}

	arm64Stub, err := EmitStub(ArchAArch64, 0x1234)
	if err != nil {
		t.Fatalf("EmitStub(ArchAArch64) error = %v", err)
	}
	if len(arm64Stub) != ArchAArch64.StubLen() {
		t.Errorf("len(EmitStub(ArchAArch64)) = %d, want %d", len(arm64Stub), ArchAArch64.StubLen())
	}

	_, err = EmitStub(ArchUnknown, 0x1234)
	if !errors.Is(err, ErrUnsupportedArch) {
		t.Fatalf("EmitStub(ArchUnknown) error = %v, want ErrUnsupportedArch", err)
	}
}
