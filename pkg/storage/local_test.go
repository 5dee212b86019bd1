package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/giftkart/pkg/storage"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, err := storage.NewLocalDisk(t.TempDir(), "http://localhost:8080/storage/")
	require.NoError(t, err)

	require.NoError(t, d.Put(ctx, "payments/proof-1.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	ok, err := d.Exists(ctx, "payments/proof-1.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := d.Open(ctx, "payments/proof-1.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.4", string(body))

	assert.Equal(t, "http://localhost:8080/storage/payments/proof-1.pdf", d.URL("payments/proof-1.pdf"))

	require.NoError(t, d.Delete(ctx, "payments/proof-1.pdf"))
	require.NoError(t, d.Delete(ctx, "payments/proof-1.pdf"))

	_, err = d.Open(ctx, "payments/proof-1.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalDiskRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	d, err := storage.NewLocalDisk(t.TempDir(), "")
	require.NoError(t, err)

	for _, p := range []string{"../etc/passwd", "/abs", "a/../../b", ""} {
		err := d.Put(ctx, p, strings.NewReader("x"), 1, "")
		assert.ErrorIs(t, err, storage.ErrInvalidPath, p)
	}
}

func TestManagerUse(t *testing.T) {
	d, err := storage.NewLocalDisk(t.TempDir(), "")
	require.NoError(t, err)
	storage.RegisterDisk("scratch", d)

	got, err := storage.Use("scratch")
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = storage.Use("nope")
	assert.Error(t, err)
}
