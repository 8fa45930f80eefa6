// Package vdsohook replaces time-query entry points exported by the Linux
// vDSO with caller-supplied implementations, in the currently running
// process, without relaunching it or preloading a shared library.
//
// The package locates the [vdso] mapping, resolves symbol addresses inside
// it, and overwrites a symbol's prologue with a short stub that jumps to a
// caller-supplied function address. The caller is responsible for the
// ABI-compatibility of that address; vdsohook never inspects it.
package vdsohook
