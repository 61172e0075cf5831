//go:build tools

// cover-merger joins the unit and integration coverage profiles written by
// `make cover` into one profile. Blocks reported by several runs are merged:
// counts are summed in count/atomic mode and or-ed in set mode.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

func main() {
	out := flag.String("o", "coverage.out", "merged profile")
	pattern := flag.String("in", "*.cover", "glob of profiles to merge")
	flag.Parse()

	files, err := filepath.Glob(*pattern)
	if err != nil {
		fail("failed to find profiles: %v", err)
	}

	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "warning: no files match %s\n", *pattern)
		return
	}

	mode := ""
	blocks := make(map[string]int64)

	for _, file := range files {
		fileMode, err := readProfile(file, blocks)
		if err != nil {
			fail("%v", err)
		}

		if mode == "" {
			mode = fileMode
		} else if fileMode != mode {
			fail("%s uses mode %q, expected %q", file, fileMode, mode)
		}
	}

	if err := writeProfile(*out, mode, blocks); err != nil {
		fail("%v", err)
	}

	fmt.Printf("merged %d profiles into %s (%d blocks)\n", len(files), *out, len(blocks))
}

func readProfile(path string, blocks map[string]int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var mode string
	sc := bufio.NewScanner(f)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if m, ok := strings.CutPrefix(line, "mode: "); ok {
			mode = m
			continue
		}

		// file.go:10.2,12.3 1 5
		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			return "", fmt.Errorf("%s: malformed line %q", path, line)
		}

		count, err := strconv.ParseInt(line[idx+1:], 10, 64)
		if err != nil {
			return "", fmt.Errorf("%s: bad count in %q: %w", path, line, err)
		}

		key := line[:idx]
		if mode == "set" {
			if count > 0 {
				blocks[key] = 1
			} else if _, ok := blocks[key]; !ok {
				blocks[key] = 0
			}
			continue
		}

		blocks[key] += count
	}

	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	if mode == "" {
		return "", fmt.Errorf("%s: missing mode line", path)
	}

	return mode, nil
}

func writeProfile(path, mode string, blocks map[string]int64) error {
	keys := make([]string, 0, len(blocks))
	for k := range blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "mode: %s\n", mode)
	for _, k := range keys {
		fmt.Fprintf(w, "%s %d\n", k, blocks[k])
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
