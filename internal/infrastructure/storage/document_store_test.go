package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/service-workflow/internal/application/port"
)

func TestLocalDocumentStore_PutGet(t *testing.T) {
	root := t.TempDir()
	store := NewLocalDocumentStore(root, zap.NewNop())
	ctx := context.Background()

	key := "SC001/quotation/SC001-QT-2025-0001.xlsx"
	require.NoError(t, store.Put(ctx, key, []byte("v1")))
	assert.FileExists(t, filepath.Join(root, "SC001", "quotation", "SC001-QT-2025-0001.xlsx"))

	require.NoError(t, store.Put(ctx, key, []byte("v2")))
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	entries, err := os.ReadDir(filepath.Join(root, "SC001", "quotation"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	_, err = store.Get(ctx, "SC001/quotation/missing.xlsx")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestLocalDocumentStore_RejectsEscapingKeys(t *testing.T) {
	root := t.TempDir()
	store := NewLocalDocumentStore(root, zap.NewNop())
	ctx := context.Background()

	for _, key := range []string{"", "../escape.xlsx", "a/../../escape.xlsx", "/etc/passwd", `a\b.xlsx`, "."} {
		t.Run(key, func(t *testing.T) {
			err := store.Put(ctx, key, []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidKey)
			assert.False(t, store.Has(ctx, key))
		})
	}

	_, statErr := os.Stat(filepath.Join(filepath.Dir(root), "escape.xlsx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalDocumentStore_Has(t *testing.T) {
	store := NewLocalDocumentStore(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	assert.False(t, store.Has(ctx, "present.xlsx"))
	require.NoError(t, store.Put(ctx, "dir/present.xlsx", []byte("x")))
	assert.True(t, store.Has(ctx, "dir/present.xlsx"))
	assert.False(t, store.Has(ctx, "dir"), "directories are not documents")
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SC001-QT-2025-0001", "SC001-QT-2025-0001"},
		{"../../etc/passwd", "etcpasswd"},
		{"Proforma Invoice", "Proforma_Invoice"},
		{"BLR-CIS-20250115-0003.xlsx", "BLR-CIS-20250115-0003.xlsx"},
		{"a*b?c", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeName(tt.input))
		})
	}
}
