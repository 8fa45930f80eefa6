package vdsohook

import (
	"debug/elf"
	"fmt"
	"io"
	"os"
	"sort"
)

// Symbol is the resolver's output for one requested name: the absolute
// address of its first instruction, and the writable budget available
// at that address before the next function symbol or the end of the region.
type Symbol struct {
	Name    string
	Address uint64
	Budget  uint64
}

// View is a read-only byte view of the vDSO region, anchored at Range.Start.
//
// Grounded on the other_examples DataDog vdso.go, which reads the vDSO ELF
// through /proc/self/mem via io.NewSectionReader rather than an
// unsafe.Pointer cast over the live mapping — the same choice made here.
type View struct {
	Range AddressRange
	mem   *os.File
	sr    *io.SectionReader
}

// OpenView opens /proc/self/mem and anchors a SectionReader at rng, ready for
// ELF parsing by Resolve.
func OpenView(rng AddressRange) (*View, error) {
	mem, err := os.Open("/proc/self/mem")
	if err != nil {
		return nil, &Error{Kind: KindMapReadFailure, Op: "OpenView", Err: err}
	}
	sr := io.NewSectionReader(mem, int64(rng.Start), int64(rng.Len()))
	return &View{Range: rng, mem: mem, sr: sr}, nil
}

// Close releases the underlying /proc/self/mem file descriptor.
func (v *View) Close() error {
	return v.mem.Close()
}

// Resolve parses the vDSO image and returns a descriptor for each requested
// name that is present among the image's function symbols. Names that are
// absent are omitted, not an error; the caller decides policy.
//
// Grounded on cffi.go (ExtractSymbolsFromSo, iterating DynamicSymbols
// filtering elf.ST_TYPE(sym.Info) == elf.STT_FUNC) and hotreload_unix.go
// (ExtractFunctionCode, computing a symbol's offset and size within .text)
// — here generalized from "offset into a section" to "gap to the next
// function symbol," per the writable-budget rule a redirected entry point
// must respect.
func (v *View) Resolve(names ...string) (map[string]*Symbol, error) {
	ef, err := elf.NewFile(v.sr)
	if err != nil {
		return nil, &Error{Kind: KindMalformedImage, Op: "Resolve", Err: err}
	}
	defer ef.Close()

	syms, err := ef.DynamicSymbols()
	if err != nil {
		return nil, &Error{Kind: KindMalformedImage, Op: "Resolve", Err: fmt.Errorf("read dynamic symbols: %w", err)}
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	// Every function symbol's offset, used to compute each requested
	// symbol's writable budget as the gap to the next one.
	var funcOffsets []uint64
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		funcOffsets = append(funcOffsets, sym.Value)
	}
	sort.Slice(funcOffsets, func(i, j int) bool { return funcOffsets[i] < funcOffsets[j] })

	regionEnd := v.Range.Len()
	result := make(map[string]*Symbol, len(names))
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		if !wanted[sym.Name] {
			continue
		}

		budget := budgetFor(sym.Value, funcOffsets, regionEnd)
		result[sym.Name] = &Symbol{
			Name:    sym.Name,
			Address: v.Range.Start + sym.Value,
			Budget:  budget,
		}
	}

	return result, nil
}

// budgetFor returns the gap between offset and the next larger distinct
// offset in sortedOffsets, clamped to regionEnd when there is no next
// symbol or the gap would run past the end of the region.
func budgetFor(offset uint64, sortedOffsets []uint64, regionEnd uint64) uint64 {
	next := regionEnd
	for _, o := range sortedOffsets {
		if o > offset && o < next {
			next = o
		}
	}
	if next < offset {
		return 0
	}
	return next - offset
}
