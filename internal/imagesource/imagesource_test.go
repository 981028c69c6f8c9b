package imagesource

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriLens/internal/classifier"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBlobStore(t *testing.T) {
	store := NewBlobStore()

	ref := store.Create("cat.png", []byte("data"))
	assert.True(t, IsBlobRef(ref))
	assert.NotEqual(t, ref, store.Create("cat.png", []byte("data")))

	data, name, ok := store.Get(ref)
	require.True(t, ok)
	assert.Equal(t, []byte("data"), data)
	assert.Equal(t, "cat.png", name)

	store.Revoke(ref)
	_, _, ok = store.Get(ref)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())

	store.Revoke("blob:unknown")
}

func TestSelector_FromURL(t *testing.T) {
	sel := NewSelector(NewBlobStore())

	src, ok := sel.FromURL(" https://picsum.photos/200 ")
	require.True(t, ok)
	assert.Equal(t, " https://picsum.photos/200 ", src.Ref, "URL is taken verbatim")
	assert.Equal(t, KindURL, src.Kind)

	_, ok = sel.FromURL("")
	assert.False(t, ok)
}

func TestSelector_FromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), pngBytes(t, 2, 2), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), pngBytes(t, 3, 3), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0.png"), 0o755))

	blobs := NewBlobStore()
	sel := NewSelector(blobs)

	src, ok, err := sel.FromFile(filepath.Join(dir, "*.png"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.png", src.Label, "first regular file wins")
	assert.Equal(t, KindBlob, src.Kind)
	assert.Equal(t, 1, blobs.Len())

	sel.Release(src)
	assert.Equal(t, 0, blobs.Len())

	_, ok, err = sel.FromFile("   ")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = sel.FromFile(filepath.Join(dir, "*.jpg"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelector_FromFileRelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cat.png"), pngBytes(t, 2, 2), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	sel := NewSelector(NewBlobStore())
	src, ok, err := sel.FromFile("cat.png")
	require.NoError(t, err)
	require.True(t, ok)

	want, err := filepath.Abs("cat.png")
	require.NoError(t, err)
	assert.Equal(t, want, src.Path)
	assert.True(t, filepath.IsAbs(src.Path))
	assert.Equal(t, "cat.png", src.Label)
}

func TestResolver_Blob(t *testing.T) {
	blobs := NewBlobStore()
	resolver := NewResolver(blobs, time.Second)
	src := Source{Ref: blobs.Create("x.png", pngBytes(t, 4, 3)), Label: "x.png", Kind: KindBlob}

	img, format, err := resolver.Resolve(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	blobs.Revoke(src.Ref)
	_, _, err = resolver.Resolve(context.Background(), src)
	require.Error(t, err)
	assert.True(t, classifier.IsKind(err, classifier.KindInvalidImageSource))
}

func TestResolver_URL(t *testing.T) {
	data := pngBytes(t, 5, 5)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cat.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		case "/text":
			_, _ = w.Write([]byte("hello"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	resolver := NewResolver(NewBlobStore(), time.Second)
	ctx := context.Background()

	img, _, err := resolver.Resolve(ctx, Source{Ref: server.URL + "/cat.png", Kind: KindURL})
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dy())

	for _, ref := range []string{server.URL + "/missing", server.URL + "/text", "ftp://example.com/a.png", "not a url"} {
		_, _, err := resolver.Resolve(ctx, Source{Ref: ref, Label: ref, Kind: KindURL})
		require.Error(t, err, ref)
		assert.True(t, classifier.IsKind(err, classifier.KindInvalidImageSource), ref)
	}
}

func TestResolver_DataURL(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, 2, 7))
	img, _, err := NewResolver(NewBlobStore(), 0).Resolve(context.Background(), Source{Ref: ref, Kind: KindURL})
	require.NoError(t, err)
	assert.Equal(t, 7, img.Bounds().Dy())

	_, _, err = NewResolver(NewBlobStore(), 0).Resolve(context.Background(), Source{Ref: "data:text/plain,hi", Kind: KindURL})
	require.Error(t, err)
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.png")
	other := filepath.Join(dir, "dog.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 1, 1), 0o600))

	fw, err := NewFileWatcher()
	require.NoError(t, err)
	defer fw.Close()

	require.NoError(t, fw.Watch(path))

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, pngBytes(t, 2, 2), 0o600))

	select {
	case changed := <-fw.Changes():
		assert.Equal(t, path, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}

	require.NoError(t, fw.Watch(""))
}
