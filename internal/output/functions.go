package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// FormatFields renders key/value pairs as aligned bullet lines, sorted by key.
func FormatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	width := 0
	for k := range fields {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %-*s %s %s\n", StyleSymbols["bullet"], width, k, StyleSymbols["arrow"], fields[k])
	}
	return b.String()
}

// PrintFields writes FormatFields output to w in the detail style.
func PrintFields(w io.Writer, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(FormatFields(fields), "\n"), "\n") {
		fmt.Fprintln(w, detailStyle.Render(line))
	}
}
