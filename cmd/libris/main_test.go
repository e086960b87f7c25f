package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG"} {
		set := flag.NewFlagSet("test", 0)
		set.String("log-level", level, "")
		ctx := cli.NewContext(nil, set, nil)

		assert.NoError(t, setup(ctx), level)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	set := flag.NewFlagSet("test", 0)
	set.String("log-level", "verbose", "")
	ctx := cli.NewContext(nil, set, nil)

	err := setup(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestReadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := `
https://example.com/a.pdf

# a comment
https://example.com/b.pdf
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	urls, err := readURLFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/a.pdf",
		"https://example.com/b.pdf",
	}, urls)
}

func TestReadURLFileMissing(t *testing.T) {
	_, err := readURLFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
