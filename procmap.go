package vdsohook

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const vdsoPathname = "[vdso]"

// LocateVDSO scans the calling process's own memory map and returns the
// address range of the region whose pathname is exactly "[vdso]".
//
// Grounded on the other_examples modify_time tool's FindVDSOEntry, which
// walks a parsed list of map entries comparing e.Path == "[vdso]"; here the
// parse and the search are folded into a single scan of /proc/self/maps.
func LocateVDSO() (AddressRange, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return AddressRange{}, &Error{Kind: KindMapReadFailure, Op: "LocateVDSO", Err: err}
	}
	defer f.Close()

	rng, found, err := scanForVDSO(f)
	if err != nil {
		return AddressRange{}, &Error{Kind: KindMapReadFailure, Op: "LocateVDSO", Err: err}
	}
	if !found {
		return AddressRange{}, &Error{Kind: KindVdsoNotFound, Op: "LocateVDSO"}
	}

	if Verbose {
		fmt.Fprintf(os.Stderr, "vdsohook: located [vdso] at %#x-%#x\n", rng.Start, rng.End)
	}

	return rng, nil
}

// scanForVDSO reads lines of the fixed-format /proc/<pid>/maps layout:
//
//	<start>-<end> <perms> <offset> <dev> <inode>  <pathname>
//
// and returns the range of the first line whose trailing pathname field is
// exactly "[vdso]".
func scanForVDSO(r *os.File) (AddressRange, bool, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		if fields[len(fields)-1] != vdsoPathname {
			continue
		}

		rng, err := parseAddressField(fields[0])
		if err != nil {
			return AddressRange{}, false, err
		}
		return rng, true, nil
	}
	if err := scanner.Err(); err != nil {
		return AddressRange{}, false, err
	}
	return AddressRange{}, false, nil
}

// parseAddressField parses a "start-end" hex field, e.g. "7ffd9a1fa000-7ffd9a1fc000".
func parseAddressField(field string) (AddressRange, error) {
	parts := strings.SplitN(field, "-", 2)
	if len(parts) != 2 {
		return AddressRange{}, fmt.Errorf("malformed address field %q", field)
	}
	start, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return AddressRange{}, fmt.Errorf("parse start address %q: %w", parts[0], err)
	}
	end, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return AddressRange{}, fmt.Errorf("parse end address %q: %w", parts[1], err)
	}
	return AddressRange{Start: start, End: end}, nil
}
