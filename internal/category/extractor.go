// Package category parses eBay category taxonomy exports into a flat
// vocabulary of fully qualified category paths.
//
// Two tabular layouts are recognized:
//   - the hierarchical-columns export, with an "L1","L2",... header where
//     each row carries the full path across columns
//   - the indented single-column export, with a "Category Name" header where
//     each row names one category at a depth given by its column position
//
// A file matching neither layout contributes zero categories without error.
package category

import (
	"fmt"
	"strings"
)

// maxDepth is the number of leading columns inspected per row. eBay exports
// never nest deeper than six levels.
const maxDepth = 6

const pathSeparator = " > "

const (
	hierarchicalHeaderSignature = `"L1","L2","L3"`
	indentedHeaderSignature     = `"Category Name"`
)

// ParseFiles extracts the category vocabulary from the given raw file
// contents. Each file is parsed by detected layout and the results are
// concatenated and deduplicated, keeping first-appearance order. Callers must
// supply one or two files; that bound comes from the upload surface, not the
// parser.
func ParseFiles(contents []string) ([]string, error) {
	if len(contents) == 0 || len(contents) > 2 {
		return nil, fmt.Errorf("expected 1 or 2 category files, got %d", len(contents))
	}

	var all []string
	for _, content := range contents {
		switch {
		case strings.Contains(content, hierarchicalHeaderSignature):
			all = append(all, parseHierarchicalColumns(content)...)
		case strings.Contains(content, indentedHeaderSignature):
			all = append(all, parseIndentedColumn(content)...)
		}
		// Unrecognized layouts fall through and contribute nothing.
	}

	seen := make(map[string]bool, len(all))
	unique := make([]string, 0, len(all))
	for _, path := range all {
		if !seen[path] {
			seen[path] = true
			unique = append(unique, path)
		}
	}
	return unique, nil
}

// splitColumns splits a CSV-ish line into quote-stripped, trimmed cells.
func splitColumns(line string) []string {
	cols := strings.Split(line, ",")
	for i, col := range cols {
		cols[i] = strings.TrimSpace(strings.ReplaceAll(col, `"`, ""))
	}
	return cols
}

// parseHierarchicalColumns handles the L1..L6 layout: every data row holds
// its complete path, one level per column.
func parseHierarchicalColumns(content string) []string {
	lines := strings.Split(content, "\n")
	var categories []string
	for _, line := range lines[1:] { // skip header
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := splitColumns(line)
		if len(cols) > maxDepth {
			cols = cols[:maxDepth]
		}
		var parts []string
		for _, col := range cols {
			if col != "" {
				parts = append(parts, col)
			}
		}
		if len(parts) > 0 {
			categories = append(categories, strings.Join(parts, pathSeparator))
		}
	}
	return categories
}

// parseIndentedColumn handles the single-column layout: each row names one
// category, with its hierarchy depth encoded by which column the name sits
// in. A running path stack is truncated to the row's depth before the name is
// appended, so a shallower sibling correctly drops the deeper segments.
func parseIndentedColumn(content string) []string {
	lines := strings.Split(content, "\n")

	headerIdx := -1
	for i, line := range lines {
		if strings.HasPrefix(line, indentedHeaderSignature) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil
	}

	var categories []string
	var currentPath []string
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ",") {
			continue
		}
		cols := splitColumns(line)

		depth := -1
		for i := 0; i < maxDepth && i < len(cols); i++ {
			if cols[i] != "" && cols[i] != "-" {
				depth = i
				break
			}
		}
		if depth == -1 {
			continue
		}

		currentPath = append(currentPath[:min(depth, len(currentPath))], cols[depth])
		categories = append(categories, strings.Join(currentPath, pathSeparator))
	}
	return categories
}
