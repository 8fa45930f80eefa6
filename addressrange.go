package vdsohook

import "golang.org/x/sys/unix"

// AddressRange is a half-open interval [Start, End) of process-virtual
// addresses.
type AddressRange struct {
	Start uint64
	End   uint64
}

// Len returns the number of bytes covered by the range.
func (r AddressRange) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// PageAligned reports whether Start is page-aligned and the range length is
// a positive multiple of the system page size. The process-map reader is
// allowed to return a range that fails this check; callers decide policy.
func (r AddressRange) PageAligned() bool {
	pageSize := uint64(unix.Getpagesize())
	if pageSize == 0 {
		return false
	}
	length := r.Len()
	return r.Start%pageSize == 0 && length > 0 && length%pageSize == 0
}

// Contains reports whether addr falls within [Start, End).
func (r AddressRange) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}
