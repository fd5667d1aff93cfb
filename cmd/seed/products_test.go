//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	t.Run("should fall back to the sample catalog", func(t *testing.T) {
		got, err := loadCatalog("")
		require.NoError(t, err)
		assert.Equal(t, sampleCatalog, got)
	})

	t.Run("should parse a yaml catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
- id: p1
  title: Sample
  cash_price: 500
  credit_price: 12
  download_url: https://cdn.example/p1.zip
`), 0o600))

		got, err := loadCatalog(path)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].ID)
		assert.EqualValues(t, 500, got[0].CashPrice)
		assert.EqualValues(t, 12, got[0].CreditPrice)
	})

	t.Run("should report a missing file", func(t *testing.T) {
		_, err := loadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
