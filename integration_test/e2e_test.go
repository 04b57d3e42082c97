package integration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatarc"
	"github.com/hupe1980/flatarc/layout"
	"github.com/hupe1980/flatarc/storage"
)

const (
	graphSchema    = "archive Graph { vertices; vertices_data; strings; }"
	verticesSchema = "vertices : vector< Character >;"
	dataSchema     = "vertices_data : multivector< 32, Nickname >;"
	dataIdxSchema  = "index(vertices_data : multivector< 32, Nickname >;)"
	stringsSchema  = "strings : raw_data;"
)

func graphSpec() flatarc.ArchiveSpec {
	character := layout.NewStructType("Character", 4,
		layout.Field{Name: "name_ref", Offset: 0, Width: 32},
	)
	nickname := layout.NewStructType("Nickname", 4,
		layout.Field{Name: "ref", Offset: 0, Width: 32},
	)
	return flatarc.ArchiveSpec{
		Name:   "Graph",
		Schema: graphSchema,
		Resources: []flatarc.ResourceSpec{
			{Name: "vertices", Schema: verticesSchema, Kind: flatarc.KindVector, Element: character},
			{
				Name:        "vertices_data",
				Schema:      dataSchema,
				Kind:        flatarc.KindMultiVector,
				Variants:    layout.NewVariantSet("VerticesData", nickname),
				Index:       layout.NewIndexType(32),
				IndexSchema: dataIdxSchema,
			},
			{Name: "strings", Schema: stringsSchema, Kind: flatarc.KindRawData},
		},
	}
}

func build(t *testing.T, ctx context.Context, store *storage.Store, n int) {
	t.Helper()
	spec := graphSpec()

	b, err := flatarc.NewBuilder(ctx, store, spec)
	require.NoError(t, err)

	vertices, err := b.StartVector("vertices")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		vertices.Grow().SetUint("name_ref", uint64(i*3))
	}
	require.NoError(t, vertices.Close(ctx))

	data, err := b.StartMultiVector("vertices_data")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			s, err := data.Add("Nickname")
			require.NoError(t, err)
			s.SetUint("ref", uint64(i))
		}
		require.NoError(t, data.FinishItem())
	}
	require.NoError(t, data.Close(ctx))

	require.NoError(t, b.SetRawData(ctx, "strings", []byte("alpha\x00beta\x00")))
}

func verify(t *testing.T, ctx context.Context, store *storage.Store, n int) {
	t.Helper()

	a, err := flatarc.Open(ctx, store, graphSpec())
	require.NoError(t, err)

	vertices, ok := a.Vector("vertices")
	require.True(t, ok)
	require.Equal(t, n, vertices.Len())
	for i := 0; i < n; i++ {
		v, err := vertices.At(i)
		require.NoError(t, err)
		assert.Equal(t, uint64(i*3), v.Uint("name_ref"))
	}

	data, ok := a.MultiVector("vertices_data")
	require.True(t, ok)
	require.Equal(t, n, data.Len())
	for i := 0; i < n; i++ {
		items, err := data.At(i)
		require.NoError(t, err)
		if i%2 == 0 {
			require.Len(t, items, 1)
			assert.Equal(t, uint64(i), items[0].View.Uint("ref"))
		} else {
			assert.Empty(t, items)
		}
	}

	strings, ok := a.RawData("strings")
	require.True(t, ok)
	assert.Equal(t, []byte("alpha\x00beta\x00"), strings)
}

// Build on one backend, verify on a fresh handle over the same bytes.
func TestEndToEnd_Dir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	writer, err := storage.NewDir(root)
	require.NoError(t, err)
	build(t, ctx, storage.NewStore(writer), 1000)
	require.NoError(t, writer.Close())

	reader, err := storage.NewDir(root)
	require.NoError(t, err)
	defer func() { require.NoError(t, reader.Close()) }()

	verify(t, ctx, storage.NewStore(reader), 1000)
}

func TestEndToEnd_Memory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())
	build(t, ctx, store, 257)
	verify(t, ctx, store, 257)
}

func TestEndToEnd_Caching(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewCaching(storage.NewMemory())
	store := storage.NewStore(backend)
	build(t, ctx, store, 64)
	verify(t, ctx, store, 64)
	// Second open is served from the cache.
	verify(t, ctx, store, 64)
}

// A reopened builder must refuse to touch an existing archive, whatever
// the backend.
func TestEndToEnd_NoOverwrite(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	writer, err := storage.NewDir(root)
	require.NoError(t, err)
	store := storage.NewStore(writer)
	build(t, ctx, store, 8)

	_, err = flatarc.NewBuilder(ctx, store, graphSpec())
	require.Error(t, err)
	require.NoError(t, writer.Close())
}
