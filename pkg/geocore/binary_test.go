package geocore

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/geocore/internal/testutil"
)

func TestBinaries_Upload(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/objs/{id}/bins/{key}", testutil.Success(map[string]any{"key": "photo"}))

	info, err := c.Binaries.Upload(context.Background(), ObjectBinary("PLA-1", "photo"), []byte{0x89, 0x50})
	require.NoError(t, err)
	assert.Equal(t, "photo", info.Key)

	part := srv.Last(t).File(t)
	assert.Equal(t, "data", part.FieldName)
	assert.Equal(t, DefaultMimeType, part.ContentType)
	assert.Equal(t, []byte{0x89, 0x50}, part.Data)
}

func TestBinaries_UploadEscapesKey(t *testing.T) {
	t.Parallel()

	keys := []string{"photo#1", "photo#2", "a?b", "50%off", "a/b"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			c, srv := newTestClient(t)
			srv.Handle(http.MethodPost, "/objs/{id}/bins/{key}", testutil.Success(map[string]any{"key": key}))

			_, err := c.Binaries.Upload(context.Background(), ObjectBinary("PLA-1", key), []byte("x"))
			require.NoError(t, err)

			got := srv.Last(t)
			assert.Equal(t, "/objs/PLA-1/bins/"+key, got.Path)
			assert.Empty(t, got.Query)
		})
	}
}

func TestBinaries_UploadRequiresData(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)

	_, err := c.Binaries.Upload(context.Background(), ObjectBinary("PLA-1", "photo"), nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
	_, err = c.Binaries.Upload(context.Background(), BinaryRef{Key: "photo"}, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Empty(t, srv.Requests())
}

func TestBinaries_URLDowngradesScheme(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/objs/{id}/bins/{key}/url", testutil.Success(map[string]any{"url": "https://cdn.example/a.png"}))

	u, err := c.Binaries.URL(context.Background(), ObjectBinary("PLA-1", "a"))
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example/a.png", u)
}

func TestBinaries_URLMissing(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/objs/{id}/bins/{key}/url", testutil.Success(map[string]any{"key": "a"}))

	_, err := c.Binaries.URL(context.Background(), ObjectBinary("PLA-1", "a"))
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestBinaries_RelationshipInfoPath(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/objs/relationship/{id1}/{id2}/bins/{key}", testutil.Success("k"))

	info, err := c.Binaries.Info(context.Background(), RelationshipBinary("USE-1", "PLA-2", "k"))
	require.NoError(t, err)
	assert.Equal(t, "k", info.Key)
	assert.Equal(t, "/objs/relationship/USE-1/PLA-2/bins/k", srv.Last(t).Path)
}

func TestBinaries_URLs(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/objs/{id}/bins/{key}/url", func(w http.ResponseWriter, r *http.Request) {
		key := strings.Split(r.URL.Path, "/")[4]
		testutil.Success(map[string]any{"url": "http://cdn.example/" + key})(w, r)
	})

	urls, err := c.Binaries.URLs(context.Background(), "PLA-1", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a": "http://cdn.example/a",
		"b": "http://cdn.example/b",
		"c": "http://cdn.example/c",
	}, urls)
}

func TestBinaries_Download(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/objs/{id}/bins/{key}/url", testutil.Success(map[string]any{"url": srv.URL + "/assets/a.bin"}))
	srv.Handle(http.MethodGet, "/assets/a.bin", testutil.Raw(http.StatusOK, "payload"))

	data, err := c.Binaries.Download(context.Background(), ObjectBinary("PLA-1", "a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestBinaries_List(t *testing.T) {
	t.Parallel()
	c, srv := newTestClient(t)
	srv.Handle(http.MethodGet, "/objs/{id}/bins", testutil.Success([]any{"a", "b"}))

	keys, err := c.Binaries.List(context.Background(), BinaryRef{ObjectID: "PLA-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}
