package vdsohook

// TimeSymbols returns the canonical vDSO-exported time entry point names for
// arch. The core accepts any subset of these (or any other name present in
// the image) from the caller; this table is only a convenience default for
// list_symbols.
func TimeSymbols(arch Arch) []string {
	switch arch {
	case ArchX86_64:
		return []string{
			"clock_gettime", "__vdso_clock_gettime",
			"gettimeofday", "__vdso_gettimeofday",
			"time", "__vdso_time",
			"clock_getres", "__vdso_clock_getres",
		}
	case ArchAArch64:
		return []string{
			"__kernel_clock_gettime",
			"__kernel_gettimeofday",
			"__kernel_time",
			"__kernel_clock_getres",
		}
	default:
		return nil
	}
}
