package main

import (
	"os"
	"strings"
)

// init runs before Bubble Tea or Lipgloss touch the terminal.
//
// Lipgloss background detection can write OSC/DSR queries to stdout, which
// corrupts JSON read by another program. Machine-readable invocations are
// treated as non-interactive by setting CI=1, which disables the probing.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args[1:], os.Getenv("QDASH_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envTest bool) bool {
	if envTest {
		return true
	}
	for _, arg := range args {
		switch {
		case arg == "--json", arg == "--help", arg == "-h":
			return true
		case arg == "version", arg == "--plain":
			return true
		case strings.HasPrefix(arg, "--json="):
			return true
		}
	}
	return false
}
