package orchestrator

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadEmails reads the account list: one address per line, lines starting
// with '#' and blank lines ignored, duplicates removed preserving the
// first occurrence's position.
func LoadEmails(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading email list %s: %w", path, err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading email list %s: %w", path, err)
	}
	return out, nil
}
