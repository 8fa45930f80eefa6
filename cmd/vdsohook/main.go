// Command vdsohook is a small demonstrator for the vdsohook package: it
// lists the patchable time symbols in the running process's vDSO, installs
// a redirection to a caller-supplied address, and restores it.
//
// There are no global flags: main dispatches on the first argument, and
// each subcommand parses its own flag.NewFlagSet, since vdsohook's
// operations (list, patch, restore) take disjoint argument shapes rather
// than sharing one flat flag set.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/xyproto/vdsohook"
)

const versionString = "vdsohook 0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "list":
		runList(os.Args[2:])
	case "patch":
		runPatch(os.Args[2:])
	case "restore":
		runRestore(os.Args[2:])
	case "-V", "--version", "version":
		fmt.Println(versionString)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "vdsohook: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: vdsohook <command> [flags]

commands:
  list                 list patchable time symbols in this process's vDSO
  patch   -symbol NAME -target HEXADDR   install a redirection
  restore -symbol NAME                   undo a previous patch in this process
  version              print version information and exit
`)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	verbose := fs.Bool("v", false, "verbose mode")
	fs.Parse(args)
	if *verbose {
		vdsohook.Verbose = true
	}

	names, err := vdsohook.ListSymbols()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vdsohook: list: %v\n", err)
		os.Exit(1)
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func runPatch(args []string) {
	fs := flag.NewFlagSet("patch", flag.ExitOnError)
	symbol := fs.String("symbol", "", "vDSO symbol name to redirect")
	target := fs.String("target", "", "replacement function address, hex (e.g. 0xdeadbeef)")
	verbose := fs.Bool("v", false, "verbose mode")
	fs.Parse(args)
	if *verbose {
		vdsohook.Verbose = true
	}

	if *symbol == "" || *target == "" {
		fmt.Fprintln(os.Stderr, "vdsohook: patch: -symbol and -target are required")
		os.Exit(2)
	}

	addr, err := parseHexAddr(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vdsohook: patch: %v\n", err)
		os.Exit(2)
	}

	if _, err := vdsohook.Patch(*symbol, addr); err != nil {
		fmt.Fprintf(os.Stderr, "vdsohook: patch: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("patched %s -> %#x\n", *symbol, addr)
}

func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	symbol := fs.String("symbol", "", "vDSO symbol name to restore")
	all := fs.Bool("all", false, "restore every patch installed in this process")
	verbose := fs.Bool("v", false, "verbose mode")
	fs.Parse(args)
	if *verbose {
		vdsohook.Verbose = true
	}

	if *all {
		if err := vdsohook.DefaultManager().RestoreAll(); err != nil {
			fmt.Fprintf(os.Stderr, "vdsohook: restore: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("restored all patches")
		return
	}

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "vdsohook: restore: -symbol or -all is required")
		os.Exit(2)
	}

	if err := vdsohook.DefaultManager().Restore(*symbol); err != nil {
		fmt.Fprintf(os.Stderr, "vdsohook: restore: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("restored %s\n", *symbol)
}

func parseHexAddr(s string) (uint64, error) {
	trimmed := s
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		trimmed = s[2:]
	}
	addr, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex address %q: %w", s, err)
	}
	return addr, nil
}
