// Package stacktrace trims goroutine dumps down to this module's frames.
package stacktrace

import "strings"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame of
// debug.Stack output that points into an internal package.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	paths := make([]string, 0, len(lines)/2)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		_, rest, ok := strings.Cut(line, "/internal/")
		if !ok {
			continue
		}

		idx := strings.Index(rest, ".go:")
		if idx == -1 {
			continue
		}

		loc := rest
		if end := strings.IndexByte(rest[idx:], ' '); end != -1 {
			loc = rest[:idx+end]
		}
		paths = append(paths, "internal/"+loc)
	}

	return paths
}
