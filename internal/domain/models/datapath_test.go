package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
)

func TestNewDataPath(t *testing.T) {
	t.Run("accepts a simple resource path", func(t *testing.T) {
		p, err := NewDataPath("datasets/population/2024.json")
		require.NoError(t, err)
		assert.Equal(t, "datasets/population/2024.json", p.Normalized())
		assert.Equal(t, []string{"datasets", "population", "2024.json"}, p.Segments())
		assert.Equal(t, 3, p.Depth())
		assert.Equal(t, "2024.json", p.Filename())
		assert.Equal(t, "datasets/population", p.Directory())
		assert.Equal(t, ".json", p.Extension())
	})

	t.Run("accepts a top-level resource", func(t *testing.T) {
		p, err := NewDataPath("catalog.json")
		require.NoError(t, err)
		assert.Equal(t, 1, p.Depth())
		assert.Equal(t, "", p.Directory())
		assert.Equal(t, "catalog.json", p.Filename())
	})

	t.Run("rejects empty and whitespace-only input", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "\t\n"} {
			_, err := NewDataPath(raw)
			require.Error(t, err, "raw=%q", raw)
			assert.Equal(t, constants.ErrCodeInvalidPath, errors.CodeOf(err))
		}
	})

	t.Run("rejects non-json resources", func(t *testing.T) {
		for _, raw := range []string{"datasets/report.csv", "datasets/report", "datasets/report.JSON"} {
			_, err := NewDataPath(raw)
			require.Error(t, err, "raw=%q", raw)
			assert.Equal(t, constants.ErrCodeInvalidPathFormat, errors.CodeOf(err))
		}
	})

	t.Run("rejects over-long paths", func(t *testing.T) {
		raw := strings.Repeat("a/", 600) + "x.json"
		_, err := NewDataPath(raw)
		require.Error(t, err)
		assert.Equal(t, constants.ErrCodePathTooLong, errors.CodeOf(err))
	})

	t.Run("rejects traversal and escape sequences", func(t *testing.T) {
		cases := []string{
			"../../etc/passwd.json",
			"datasets/../secrets.json",
			"datasets/./current.json",
			"datasets//double.json",
			`datasets\windows.json`,
			"datasets/%2e%2e/up.json",
			"datasets/%2fencoded.json",
			"datasets/%252e%252e/double.json",
			"datasets/%00null.json",
			"datasets/nu\x00ll.json",
			"DATASETS/%2E%2E/upper.json",
		}
		for _, raw := range cases {
			_, err := NewDataPath(raw)
			require.Error(t, err, "raw=%q", raw)
			assert.Equal(t, constants.ErrCodeInvalidPathCharacters, errors.CodeOf(err), "raw=%q", raw)
		}
	})

	t.Run("rejects absolute paths", func(t *testing.T) {
		_, err := NewDataPath("/etc/datasets.json")
		require.Error(t, err)
		assert.Equal(t, constants.ErrCodeInvalidPathCharacters, errors.CodeOf(err))
	})

	t.Run("rejects forbidden characters", func(t *testing.T) {
		for _, raw := range []string{
			"datasets/<script>.json",
			"datasets/a|b.json",
			"datasets/why?.json",
			"datasets/glob*.json",
			"datasets/c:drive.json",
		} {
			_, err := NewDataPath(raw)
			require.Error(t, err, "raw=%q", raw)
			assert.Equal(t, constants.ErrCodeInvalidPathCharacters, errors.CodeOf(err), "raw=%q", raw)
		}
	})

	t.Run("rejects over-long segments", func(t *testing.T) {
		raw := strings.Repeat("s", constants.MaxSegmentLength+1) + ".json"
		_, err := NewDataPath(raw)
		require.Error(t, err)
		assert.Equal(t, constants.ErrCodePathSegmentTooLong, errors.CodeOf(err))
	})

	t.Run("error ordering is stable", func(t *testing.T) {
		// A path that is both non-json and over-long reports the format
		// error: the json check runs first.
		raw := strings.Repeat("a/", 600) + "x.csv"
		_, err := NewDataPath(raw)
		require.Error(t, err)
		assert.Equal(t, constants.ErrCodeInvalidPathFormat, errors.CodeOf(err))
	})

	t.Run("validation is idempotent", func(t *testing.T) {
		first, err := NewDataPath("datasets/stable.json")
		require.NoError(t, err)
		second, err := NewDataPath(first.Normalized())
		require.NoError(t, err)
		assert.True(t, first.Equal(second))
	})
}

func TestDataPathZero(t *testing.T) {
	var p DataPath
	assert.True(t, p.IsZero())
	assert.Equal(t, "", p.Filename())
	assert.Equal(t, 0, p.Depth())
}
