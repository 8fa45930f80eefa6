package vdsohook

import "encoding/binary"

const scratchX16 uint32 = 16

// emitStubARM64 builds the 20-byte aarch64 stub: a four-instruction
// MOVZ/MOVK chain loading the full 64-bit literal into x16 in ascending-lane
// order, followed by an unconditional BR x16.
//
// A summary stub-shapes table elsewhere describes the aarch64 stub as 16
// bytes, but the bit-exact description this package was built against
// requires four distinct 16-bit lanes loaded *and* a trailing branch
// register instruction — five fixed 32-bit AArch64 instructions, 20 bytes,
// not four. The 16-byte figure is arithmetically impossible to reconcile
// with a full 64-bit literal load plus a branch, so this implementation
// follows the bit-exact description (see DESIGN.md) and reports
// StubLen(ArchAArch64) as 20.
//
// The MOVZ+MOVK ascending-lane chain follows arm64_instructions.go's
// MovImm64, here emitting all four lanes unconditionally rather than
// skipping zero lanes, since the stub's length must be fixed regardless of
// target value; the branch follows arm64_backend.go's CallRegister/Ret
// (BLR as 0xD63F0000|Rn<<5, RET as the fixed 0xD65F03C0 encoding, a return
// through X30), generalized to the un-linked BR form (0xD61F0000|Rn<<5) since the
// stub must not push a return address.
func emitStubARM64(target uint64) []byte {
	stub := make([]byte, 20)

	lane := func(shift uint) uint32 {
		return uint32(target>>shift) & 0xFFFF
	}

	// MOVZ x16, #lane0, LSL #0
	movz := uint32(0xD2800000) | (lane(0) << 5) | scratchX16
	// MOVK x16, #lane1, LSL #16
	movk1 := uint32(0xF2A00000) | (lane(16) << 5) | scratchX16
	// MOVK x16, #lane2, LSL #32
	movk2 := uint32(0xF2C00000) | (lane(32) << 5) | scratchX16
	// MOVK x16, #lane3, LSL #48
	movk3 := uint32(0xF2E00000) | (lane(48) << 5) | scratchX16
	// BR x16
	br := uint32(0xD61F0000) | (scratchX16 << 5)

	binary.LittleEndian.PutUint32(stub[0:4], movz)
	binary.LittleEndian.PutUint32(stub[4:8], movk1)
	binary.LittleEndian.PutUint32(stub[8:12], movk2)
	binary.LittleEndian.PutUint32(stub[12:16], movk3)
	binary.LittleEndian.PutUint32(stub[16:20], br)

	return stub
}
