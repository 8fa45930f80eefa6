package vdsohook

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestAddressRangeLen(t *testing.T) {
	tests := []struct {
		name string
		rng  AddressRange
		want uint64
	}{
		{name: "normal", rng: AddressRange{Start: 0x1000, End: 0x3000}, want: 0x2000},
		{name: "empty", rng: AddressRange{Start: 0x1000, End: 0x1000}, want: 0},
		{name: "inverted", rng: AddressRange{Start: 0x3000, End: 0x1000}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rng.Len(); got != tt.want {
				t.Errorf("Len() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestAddressRangePageAligned(t *testing.T) {
	pageSize := uint64(unix.Getpagesize())

	tests := []struct {
		name string
		rng  AddressRange
		want bool
	}{
		{name: "aligned", rng: AddressRange{Start: 0, End: pageSize * 2}, want: true},
		{name: "unaligned start", rng: AddressRange{Start: 1, End: pageSize + 1}, want: false},
		{name: "unaligned length", rng: AddressRange{Start: 0, End: pageSize + 1}, want: false},
		{name: "zero length", rng: AddressRange{Start: 0, End: 0}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rng.PageAligned(); got != tt.want {
				t.Errorf("PageAligned() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddressRangeContains(t *testing.T) {
	rng := AddressRange{Start: 0x1000, End: 0x2000}
	if !rng.Contains(0x1000) {
		t.Error("Contains(start) = false, want true")
	}
	if rng.Contains(0x2000) {
		t.Error("Contains(end) = true, want false (half-open)")
	}
	if !rng.Contains(0x1500) {
		t.Error("Contains(mid) = false, want true")
	}
	if rng.Contains(0x500) {
		t.Error("Contains(before start) = true, want false")
	}
}
