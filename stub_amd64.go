package vdsohook

import "encoding/binary"

// emitStubAMD64 builds the 12-byte x86_64 stub:
//
//	48 B8 <imm64 LE>   movabs rax, imm64
//	FF E0              jmp    rax
//
// rax is the canonical scratch register: caller-saved under the System V
// AMD64 ABI and not one of the first six integer argument registers (rdi,
// rsi, rdx, rcx, r8, r9), so the stub's tail-call via rax leaves the
// intercepted function's arguments untouched.
//
// The REX-prefix and ModR/M-direct-addressing construction follows
// mov.go's movX86ImmToReg, widened from its 32-bit MOV r/m64, imm32 form to
// a 64-bit-literal MOVABS; the indirect jump follows x86_64_codegen.go's
// CallRegister (FF D0+r, an indirect call through a register), adapted to
// FF E0+r — /4, an indirect jump rather than a call, since the stub must
// not push a return address.
func emitStubAMD64(target uint64) []byte {
	const rax = 0 // register encoding for rax; no REX.B needed (encoding < 8)

	stub := make([]byte, 12)
	stub[0] = 0x48       // REX.W
	stub[1] = 0xB8 + rax // MOVABS r64, imm64 (B8+rd)
	binary.LittleEndian.PutUint64(stub[2:10], target)
	stub[10] = 0xFF       // opcode group 5
	stub[11] = 0xE0 | rax // ModR/M: mod=11, reg=100 (/4, JMP), rm=rax
	return stub
}
