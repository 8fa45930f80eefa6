package vdsohook

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PatchStatus is the lifecycle state of a PatchRecord: Unpatched ->
// Patched via Install, Patched -> Unpatched via Restore. No other
// transition exists.
type PatchStatus int

const (
	StatusInstalled PatchStatus = iota
	StatusRestored
)

// PatchRecord is the patch manager's bookkeeping for one installed symbol:
// the target the stub jumps to, the address patched, the bytes that were
// there before, and the current lifecycle state.
type PatchRecord struct {
	Symbol   string
	Target   uint64
	Addr     uint64
	Original []byte
	Status   PatchStatus
}

// PatchSpec names one (symbol, replacement function address) pair, the unit
// WithPatches takes a batch of.
type PatchSpec struct {
	Symbol string
	Target uint64
}

// Manager orchestrates the process-map reader, image resolver, and stub
// assembler to install and restore redirections. The zero Manager is
// not usable; construct one with NewManager.
//
// A Manager deduplicates installs by address, not by name: time symbols
// commonly export both a weak alias and its strong definition
// (clock_gettime and __vdso_clock_gettime) sharing one prologue. Without an
// address-keyed check, installing both names would capture the first
// install's stub bytes as the second's "original," and restoring both would
// leave the stub permanently in place. byAddr tracks which symbol name, if
// any, currently owns the patch at each address.
//
// Grounded on HotReloadManager in hotreload_unix.go: a mutex-guarded map of
// live state, paired allocate/free operations, and raw unsafe.Pointer
// writes into already-mapped memory.
type Manager struct {
	mu sync.Mutex

	arch  Arch
	rng   AddressRange
	view  *View
	order []string // symbol names in install order, for RestoreAll

	symbols map[string]*Symbol      // cached resolved symbol table, by name
	patches map[string]*PatchRecord // installed patches, by symbol name
	byAddr  map[uint64]string       // address -> owning symbol name, for dedup
}

// NewManager constructs an empty patch manager. The vDSO view and symbol
// table are resolved lazily on first Install/ListSymbols call and cached
// for the Manager's lifetime.
func NewManager() *Manager {
	return &Manager{
		symbols: make(map[string]*Symbol),
		patches: make(map[string]*PatchRecord),
		byAddr:  make(map[uint64]string),
	}
}

var defaultManager = NewManager()

// DefaultManager returns the package-level Manager that Patch, Unpatch,
// WithPatches, and ListSymbols operate against, for callers that need
// direct access to Restore/RestoreAll without going through a PatchHandle.
func DefaultManager() *Manager {
	return defaultManager
}

// ensureView locates the vDSO and opens a view over it, if not already
// cached. Must be called with m.mu held.
func (m *Manager) ensureView() error {
	if m.view != nil {
		return nil
	}

	arch, err := DetectArch()
	if err != nil {
		return err
	}

	rng, err := LocateVDSO()
	if err != nil {
		return err
	}

	view, err := OpenView(rng)
	if err != nil {
		return err
	}

	m.arch = arch
	m.rng = rng
	m.view = view
	return nil
}

// resolve returns a Symbol descriptor for each of names that exists in the
// image, resolving and caching into m.symbols whichever of names aren't
// already known. Must be called with m.mu held and ensureView already
// successful.
func (m *Manager) resolve(names ...string) (map[string]*Symbol, error) {
	var missing []string
	for _, name := range names {
		if _, cached := m.symbols[name]; !cached {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		found, err := m.view.Resolve(missing...)
		if err != nil {
			return nil, err
		}
		for name, sym := range found {
			m.symbols[name] = sym
		}
	}

	result := make(map[string]*Symbol, len(names))
	for _, name := range names {
		if sym, ok := m.symbols[name]; ok {
			result[name] = sym
		}
	}
	return result, nil
}

// ListSymbols returns the subset of TimeSymbols(arch) present and patchable
// (writable budget >= stub length) on this host, for the running
// architecture.
func (m *Manager) ListSymbols() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureView(); err != nil {
		return nil, err
	}

	candidates := TimeSymbols(m.arch)
	resolved, err := m.resolve(candidates...)
	if err != nil {
		return nil, err
	}

	stubLen := uint64(m.arch.StubLen())
	var names []string
	for _, name := range candidates {
		sym, ok := resolved[name]
		if ok && sym.Budget >= stubLen {
			names = append(names, name)
		}
	}
	return names, nil
}

// Install resolves symbol, asserts its writable budget, and overwrites its
// prologue with a stub that jumps to target. It fails with SymbolMissing,
// BudgetTooSmall, ProtectFailed, or AlreadyInstalled — the last of these
// whether symbol itself is already installed or symbol is a weak/strong
// alias resolving to an address some other installed symbol already owns.
func (m *Manager) Install(symbol string, target uint64) (*PatchHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureView(); err != nil {
		return nil, err
	}

	resolved, err := m.resolve(symbol)
	if err != nil {
		return nil, err
	}
	sym, ok := resolved[symbol]
	if !ok {
		return nil, &Error{Kind: KindSymbolMissing, Op: "Install", Symbol: symbol}
	}

	if owner, already := m.byAddr[sym.Address]; already {
		return nil, &Error{
			Kind:   KindAlreadyInstalled,
			Op:     "Install",
			Symbol: symbol,
			Err:    fmt.Errorf("address %#x already patched via %q", sym.Address, owner),
		}
	}

	stubLen := uint64(m.arch.StubLen())
	if sym.Budget < stubLen {
		return nil, &Error{Kind: KindBudgetTooSmall, Op: "Install", Symbol: symbol}
	}

	stub, err := EmitStub(m.arch, target)
	if err != nil {
		return nil, err
	}

	original := make([]byte, stubLen)
	if err := withWritablePage(sym.Address, stubLen, func(dst []byte) {
		copy(original, dst[:stubLen])
		copy(dst[:stubLen], stub)
	}); err != nil {
		return nil, &Error{Kind: KindProtectFailed, Op: "Install", Symbol: symbol, Err: err}
	}

	record := &PatchRecord{
		Symbol:   symbol,
		Target:   target,
		Addr:     sym.Address,
		Original: original,
		Status:   StatusInstalled,
	}
	m.patches[symbol] = record
	m.byAddr[sym.Address] = symbol
	m.order = append(m.order, symbol)

	if Verbose {
		fmt.Fprintf(os.Stderr, "vdsohook: installed %s at %#x -> %#x\n", symbol, sym.Address, target)
	}

	return &PatchHandle{mgr: m, symbol: symbol}, nil
}

// Restore looks up symbol's patch record, writes the saved original bytes
// back, and removes the record. It fails with NotInstalled or
// ProtectFailed; on ProtectFailed the record is kept installed so a later
// Restore may retry.
func (m *Manager) Restore(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreLocked(symbol)
}

func (m *Manager) restoreLocked(symbol string) error {
	record, exists := m.patches[symbol]
	if !exists {
		return &Error{Kind: KindNotInstalled, Op: "Restore", Symbol: symbol}
	}

	if err := withWritablePage(record.Addr, uint64(len(record.Original)), func(dst []byte) {
		copy(dst[:len(record.Original)], record.Original)
	}); err != nil {
		return &Error{Kind: KindProtectFailed, Op: "Restore", Symbol: symbol, Err: err}
	}

	record.Status = StatusRestored
	delete(m.patches, symbol)
	delete(m.byAddr, record.Addr)
	m.order = removeString(m.order, symbol)

	if Verbose {
		fmt.Fprintf(os.Stderr, "vdsohook: restored %s\n", symbol)
	}

	return nil
}

// RestoreAll restores every currently installed patch in reverse
// installation order. It is best-effort: it keeps going after a per-entry
// failure but reports the first one encountered.
func (m *Manager) RestoreAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for i := len(m.order) - 1; i >= 0; i-- {
		symbol := m.order[i]
		if err := m.restoreLocked(symbol); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithPatches installs every spec and returns a guard that restores all of
// them, in reverse order, on Close — on any exit path, including a failed
// install partway through the batch.
func (m *Manager) WithPatches(specs ...PatchSpec) (*ScopedGuard, error) {
	guard := &ScopedGuard{mgr: m}

	for _, spec := range specs {
		if _, err := m.Install(spec.Symbol, spec.Target); err != nil {
			guard.Close() // unwind whatever succeeded before the failure
			return nil, err
		}
		guard.symbols = append(guard.symbols, spec.Symbol)
	}

	return guard, nil
}

// PatchHandle identifies one installed patch, returned by Install/Patch.
type PatchHandle struct {
	mgr    *Manager
	symbol string
}

// Unpatch restores the symbol this handle refers to.
func (h *PatchHandle) Unpatch() error {
	return h.mgr.Restore(h.symbol)
}

// ScopedGuard owns a batch of installed patches and restores all of them
// exactly once, on Close, regardless of how the scope is exited. It
// implements io.Closer so it composes naturally with defer.
type ScopedGuard struct {
	mgr     *Manager
	symbols []string
}

// Close restores every symbol this guard owns, in reverse installation
// order, best-effort, reporting the first failure.
func (g *ScopedGuard) Close() error {
	var firstErr error
	for i := len(g.symbols) - 1; i >= 0; i-- {
		if err := g.mgr.Restore(g.symbols[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.symbols = nil
	return firstErr
}

// Patch installs symbol against the package's default manager.
func Patch(symbol string, target uint64) (*PatchHandle, error) {
	return defaultManager.Install(symbol, target)
}

// Unpatch restores the patch handle returned by Patch.
func Unpatch(h *PatchHandle) error {
	return h.Unpatch()
}

// WithPatches installs every spec against the package's default manager and
// returns a guard that restores them all on Close.
func WithPatches(specs ...PatchSpec) (*ScopedGuard, error) {
	return defaultManager.WithPatches(specs...)
}

// ListSymbols returns the patchable time symbols on this host, against the
// package's default manager.
func ListSymbols() ([]string, error) {
	return defaultManager.ListSymbols()
}

// withWritablePage grants write permission to the page(s) covering
// [addr, addr+length), invokes fn with a slice over exactly that span, and
// restores read+execute protection before returning — on every exit path,
// including when fn panics or protection restoration itself fails. A page
// left writable is a bug.
//
// Grounded on hotreload_unix.go's CopyCode/UpdateFunctionPointer, which
// write through unsafe.Pointer arithmetic into memory the process already
// has mapped; golang.org/x/sys/unix.Mprotect supplies the protection
// change that source's own mmap'd-as-PROT_EXEC pages never needed, since
// the vDSO's pages start out read+execute only.
func withWritablePage(addr, length uint64, fn func(dst []byte)) (err error) {
	pageSize := uint64(unix.Getpagesize())
	pageStart := addr &^ (pageSize - 1)
	pageEnd := ((addr + length + pageSize - 1) / pageSize) * pageSize
	pageLen := pageEnd - pageStart

	// addr originates from the vDSO's own mapping, not from a Go mmap call,
	// so there is no *[]byte to slice from the usual way: this conversion
	// from uintptr to unsafe.Pointer is the one place vdsohook must step
	// outside the normal Go memory model, the same way UpdateFunctionPointer
	// in hotreload_unix.go does.
	page := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(pageStart))), pageLen)

	if err := unix.Mprotect(page, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("mprotect rw: %w", err)
	}
	defer func() {
		if restoreErr := unix.Mprotect(page, unix.PROT_READ|unix.PROT_EXEC); restoreErr != nil && err == nil {
			err = fmt.Errorf("mprotect rx: %w", restoreErr)
		}
	}()

	offset := addr - pageStart
	fn(page[offset:])
	return nil
}

func removeString(ss []string, target string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
