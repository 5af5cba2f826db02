package browser

import (
	"sort"
	"strings"
)

// launchFlags returns the fixed flag set for headless PDF rendering.
// Flags with empty values render as bare switches. The debugging port
// is 0 so the OS assigns one; the supervisor learns the real port from
// the announcement line on stderr. Home and profile both point at the
// scratch directory so no state leaks between invocations.
func launchFlags(scratchDir string) map[string]string {
	return map[string]string{
		"headless":              "",
		"no-first-run":          "",
		"disable-gpu":           "",
		"no-sandbox":            "",
		"disable-dev-shm-usage": "",
		"remote-debugging-port": "0",
		"user-data-dir":         scratchDir,
	}
}

// renderFlags renders an argument map as a shell command-line fragment
// with deterministic ordering. Every value passes through shellQuote so
// no argument can break out of its quoting.
func renderFlags(flags map[string]string) string {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(flags))
	for _, name := range names {
		if value := flags[name]; value != "" {
			parts = append(parts, "--"+name+"="+shellQuote(value))
		} else {
			parts = append(parts, "--"+name)
		}
	}

	return strings.Join(parts, " ")
}

// flagList renders the argument map as an argv slice for platforms
// that launch the child directly instead of through a shell.
func flagList(flags map[string]string) []string {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]string, 0, len(flags))
	for _, name := range names {
		if value := flags[name]; value != "" {
			args = append(args, "--"+name+"="+value)
		} else {
			args = append(args, "--"+name)
		}
	}

	return args
}

// shellQuote wraps s in single quotes, escaping any embedded single
// quote as '\'' so the shell never interprets the content.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
