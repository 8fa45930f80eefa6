package vdsohook

import "testing"

func TestTimeSymbols(t *testing.T) {
	if got := TimeSymbols(ArchX86_64); len(got) == 0 {
		t.Error("TimeSymbols(ArchX86_64) is empty")
	}
	if got := TimeSymbols(ArchAArch64); len(got) == 0 {
		t.Error("TimeSymbols(ArchAArch64) is empty")
	}
	if got := TimeSymbols(ArchUnknown); got != nil {
		t.Errorf("TimeSymbols(ArchUnknown) = %v, want nil", got)
	}
}
