package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	t.Run("Should decode JSON documents", func(t *testing.T) {
		assert.Equal(t, map[string]any{"a": "b"}, ParseCode(`{"a":"b"}`))
		assert.Equal(t, "quoted", ParseCode(`"quoted"`))
		assert.Nil(t, ParseCode("null"))
	})

	t.Run("Should keep non-JSON input as a string", func(t *testing.T) {
		assert.Equal(t, "print 1..", ParseCode("print 1.."))
	})
}

func TestReadSource(t *testing.T) {
	t.Run("Should read stdin for dash", func(t *testing.T) {
		got, err := ReadSource("-", strings.NewReader("from stdin"))
		require.NoError(t, err)
		assert.Equal(t, "from stdin", got)
	})

	t.Run("Should read files", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "code.gc")
		require.NoError(t, os.WriteFile(path, []byte("print 2.."), 0o600))
		got, err := ReadSource(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "print 2..", got)
	})
}

func TestWrite(t *testing.T) {
	t.Run("Should render YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatYAML, map[string]any{"id": "x"}))
		assert.Equal(t, "id: x\n", buf.String())
	})

	t.Run("Should write compact JSON to non-terminals", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatJSON, map[string]any{"id": "a<b"}))
		assert.Equal(t, "{\"id\":\"a<b\"}\n", buf.String())
		assert.False(t, IsTerminal(&buf))
	})

	t.Run("Should reject unknown formats", func(t *testing.T) {
		assert.Error(t, Write(&bytes.Buffer{}, "table", nil))
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("Should ignore a missing file", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
		assert.NoError(t, LoadEnvFile(""))
	})

	t.Run("Should load variables without overriding existing ones", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "GC_TEST_ENV_FILE_NEW=from-file\nGC_TEST_ENV_FILE_SET=from-file\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Setenv("GC_TEST_ENV_FILE_SET", "from-env")
		t.Setenv("GC_TEST_ENV_FILE_NEW", "")
		require.NoError(t, os.Unsetenv("GC_TEST_ENV_FILE_NEW"))
		require.NoError(t, LoadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("GC_TEST_ENV_FILE_NEW"))
		assert.Equal(t, "from-env", os.Getenv("GC_TEST_ENV_FILE_SET"))
	})

	t.Run("Should reject directories", func(t *testing.T) {
		assert.Error(t, LoadEnvFile(t.TempDir()))
	})
}
