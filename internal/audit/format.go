package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FormatTail renders up to n most recent entries as an aligned text
// table, newest last.
func FormatTail(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("audit: open: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return "", fmt.Errorf("audit: parse: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("audit: scan: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%-24s %-10s %-12s %-16s %-16s %s\n",
			e.Timestamp, e.Event, e.Outcome, e.Actor, e.Subject, e.Requester)
	}
	return b.String(), nil
}
