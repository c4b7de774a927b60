package docs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const conformantReadme = `# algopy

A trading toolkit.

## Features

- Order management
- Backtesting

## Quick Start

` + "```bash\ngo build ./...\n```" + `

## Usage

Run the CLI.

## Examples

See the examples above.

## Configuration

Edit config/config.yaml.
`

const placeholderReadme = `# Algo.Py

## Features

Placeholder for feature description.

## Quick Start

Placeholder.

## Usage

Placeholder.

## Examples

Placeholder.

## Configuration

Placeholder.
`

func TestCheck_ConformantReadme(t *testing.T) {
	report := Check(conformantReadme)

	assert.True(t, report.HasTitle)
	assert.True(t, report.Conformant())
	assert.Empty(t, report.Problems())

	for _, s := range report.Sections {
		assert.True(t, s.Present, s.Name)
		assert.False(t, s.Placeholder, s.Name)
		assert.Greater(t, s.Lines, 0, s.Name)
	}
}

func TestCheck_PlaceholderReadmeFails(t *testing.T) {
	report := Check(placeholderReadme)

	assert.True(t, report.HasTitle)
	assert.False(t, report.Conformant())

	problems := report.Problems()
	require.Len(t, problems, len(RequiredSections))
	for _, p := range problems {
		assert.Contains(t, p, "placeholder text")
	}
}

func TestCheck_MissingSections(t *testing.T) {
	report := Check("# title\n\n## Features\n\nreal content\n")

	assert.False(t, report.Conformant())
	problems := report.Problems()
	assert.Contains(t, problems, `section "Quick Start" is missing`)
	assert.Contains(t, problems, `section "Configuration" is missing`)
}

func TestCheck_NoTitle(t *testing.T) {
	report := Check("## Features\n\ncontent\n")
	assert.False(t, report.HasTitle)
	assert.Contains(t, report.Problems(), "missing top-level title heading")
}

func TestCheck_DecoratedHeadings(t *testing.T) {
	readme := `# tool

## 🚀 Quick Start

do the thing

## Features

has them

## Usage

use it

## Examples

like this

## Configuration

a file
`
	report := Check(readme)
	assert.True(t, report.Conformant(), report.Problems())
}

func TestCheckFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.md")
	require.NoError(t, os.WriteFile(path, []byte(conformantReadme), 0o644))

	report, err := CheckFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, report.Path)
	assert.True(t, report.Conformant())

	_, err = CheckFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestProjectReadmeConformant(t *testing.T) {
	report, err := CheckFile(filepath.Join("..", "..", "README.md"))
	require.NoError(t, err)
	assert.True(t, report.Conformant(), report.Problems())
}
