// Package portfolios reads and writes the tracked portfolio list.
package portfolios

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
)

// Load reads a newline-delimited list of portfolio URLs.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio list %s: %w", path, err)
	}
	defer f.Close()

	urls, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio list %s: %w", path, err)
	}
	return urls, nil
}

// Parse reads one URL per line. Blank lines and lines starting with '#' are
// ignored; duplicates keep their first position.
func Parse(r io.Reader) ([]string, error) {
	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

// FilterLinks keeps hrefs starting with prefix, deduplicated in order.
// An empty prefix keeps every non-empty href.
func FilterLinks(hrefs []string, prefix string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, h := range hrefs {
		h = strings.TrimSpace(h)
		if h == "" || !strings.HasPrefix(h, prefix) || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}

// Write stores urls one per line, replacing the file.
func Write(path string, urls []string) error {
	var buf bytes.Buffer
	for _, u := range urls {
		buf.WriteString(u)
		buf.WriteByte('\n')
	}
	if err := common.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write portfolio list %s: %w", path, err)
	}
	return nil
}
