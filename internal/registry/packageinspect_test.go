package registry

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestPackage(t *testing.T, manifestJSON string, includeImage bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	body := []byte(manifestJSON)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "manifest.json", Size: int64(len(body)), Typeflag: tar.TypeReg, Mode: 0644}))
	_, err := tw.Write(body)
	require.NoError(t, err)

	if includeImage {
		img := []byte("fake-image-bytes")
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: "image.tar", Size: int64(len(img)), Typeflag: tar.TypeReg, Mode: 0644}))
		_, err = tw.Write(img)
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return &buf
}

func TestInspect_ManifestAndImagePresent(t *testing.T) {
	pkg := buildTestPackage(t, `{"id":"sentiment-analyzer","version":"1.0.0"}`, true)

	result, err := Inspect(pkg, int64(pkg.Len()), func(id string) bool { return id == "sentiment-analyzer" })
	require.NoError(t, err)
	assert.Equal(t, "sentiment-analyzer", result.Manifest.ID)
	assert.True(t, result.ImagePresent)
	assert.Equal(t, int64(len("fake-image-bytes")), result.ImageByteSize)
	assert.True(t, result.AlreadyInstalledForManifestID)
}

func TestInspect_MissingManifestIsRejected(t *testing.T) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	_, err := Inspect(&buf, int64(buf.Len()), nil)
	assert.Error(t, err)
}

func TestInspect_OversizedHintIsRejected(t *testing.T) {
	pkg := buildTestPackage(t, `{"id":"x","version":"1.0.0"}`, false)

	_, err := Inspect(pkg, MaxPackageBytes+1, nil)
	assert.Error(t, err)
}
