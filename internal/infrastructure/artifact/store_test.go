package artifact

import (
	"io"
	"strings"
	"testing"

	pkgerrors "github.com/railswap/railswap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef(t *testing.T) {
	cases := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"ticket.pdf", "1234567890.pdf", false},
		{"scan.JPG", "1234567890.jpg", false},
		{"photo.jpeg", "1234567890.jpeg", false},
		{"ticket.png", "1234567890.png", false},
		{"ticket.exe", "", true},
		{"ticket", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		ref, err := Ref("1234567890", tc.filename)
		if tc.wantErr {
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidArtifact, tc.filename)
			assert.ErrorIs(t, err, pkgerrors.ErrValidation, tc.filename)
			continue
		}
		require.NoError(t, err, tc.filename)
		assert.Equal(t, tc.want, ref)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Save("1234567890", "ticket.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, "1234567890.pdf", ref)

	f, err := store.Open(ref)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestFileStoreOpenMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("0000000000.pdf")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestFileStoreOpenStripsPathComponents(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("1234567890", "ticket.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	// Path segments in a reference must not escape the upload directory.
	f, err := store.Open("../1234567890.pdf")
	require.NoError(t, err)
	f.Close()
}
