// Package docs checks project documentation for completeness: every
// advertised README section must exist and carry real content rather
// than placeholder text.
package docs

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// RequiredSections are the README headings a complete project must fill.
var RequiredSections = []string{
	"Features",
	"Quick Start",
	"Usage",
	"Examples",
	"Configuration",
}

// placeholderMarkers flag section bodies that were never written.
var placeholderMarkers = []string{
	"placeholder",
	"tbd",
	"coming soon",
	"to be documented",
}

// SectionStatus describes one required section.
type SectionStatus struct {
	Name        string `json:"name"`
	Present     bool   `json:"present"`
	Placeholder bool   `json:"placeholder"`
	Lines       int    `json:"lines"` // non-empty body lines
}

// Report is the outcome of a README conformance check.
type Report struct {
	Path     string          `json:"path"`
	HasTitle bool            `json:"has_title"`
	Sections []SectionStatus `json:"sections"`
}

// Conformant reports whether every required section is present with
// real content.
func (r *Report) Conformant() bool {
	if !r.HasTitle {
		return false
	}
	for _, s := range r.Sections {
		if !s.Present || s.Placeholder || s.Lines == 0 {
			return false
		}
	}
	return true
}

// Problems lists human-readable conformance failures.
func (r *Report) Problems() []string {
	var out []string
	if !r.HasTitle {
		out = append(out, "missing top-level title heading")
	}
	for _, s := range r.Sections {
		switch {
		case !s.Present:
			out = append(out, fmt.Sprintf("section %q is missing", s.Name))
		case s.Placeholder:
			out = append(out, fmt.Sprintf("section %q contains placeholder text", s.Name))
		case s.Lines == 0:
			out = append(out, fmt.Sprintf("section %q is empty", s.Name))
		}
	}
	return out
}

// CheckFile runs the conformance check against a README on disk.
func CheckFile(path string) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read readme: %w", err)
	}
	report := Check(string(b))
	report.Path = path
	return report, nil
}

// Check runs the conformance check against README content.
func Check(content string) *Report {
	report := &Report{}

	bodies := make(map[string][]string)
	var current string

	scanner := bufio.NewScanner(strings.NewReader(content))
	inFence := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			if current != "" {
				bodies[current] = append(bodies[current], trimmed)
			}
			continue
		}
		if inFence {
			if current != "" {
				bodies[current] = append(bodies[current], trimmed)
			}
			continue
		}

		if strings.HasPrefix(trimmed, "# ") {
			report.HasTitle = true
			current = ""
			continue
		}
		if heading, ok := parseHeading(trimmed); ok {
			current = normalizeHeading(heading)
			if _, seen := bodies[current]; !seen {
				bodies[current] = nil
			}
			continue
		}
		if current != "" && trimmed != "" {
			bodies[current] = append(bodies[current], trimmed)
		}
	}

	for _, name := range RequiredSections {
		key := normalizeHeading(name)
		body, present := bodies[key]
		status := SectionStatus{Name: name, Present: present, Lines: len(body)}
		if present {
			status.Placeholder = hasPlaceholder(body)
		}
		report.Sections = append(report.Sections, status)
	}
	return report
}

func parseHeading(line string) (string, bool) {
	for _, prefix := range []string{"## ", "### "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

func normalizeHeading(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Trim(h, ":")
	// Emoji or decoration before the words is common in readmes.
	fields := strings.Fields(h)
	for len(fields) > 0 && !strings.ContainsAny(fields[0], "abcdefghijklmnopqrstuvwxyz") {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func hasPlaceholder(body []string) bool {
	for _, line := range body {
		lower := strings.ToLower(line)
		for _, marker := range placeholderMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}
