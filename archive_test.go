package flatarc

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flatarc/layout"
	"github.com/hupe1980/flatarc/storage"
	"github.com/hupe1980/flatarc/view"
)

// The fixture models a coappearance graph of book characters: a meta
// struct, vertex and edge vectors, a per-vertex multivector of
// attachments, and a raw string table.

const (
	graphSchema = `namespace coappearances {
struct Meta { title_ref : u32 : 32; author_ref : u32 : 32; }
struct Character { name_ref : u32 : 32; }
struct Coappearance { a_ref : u32 : 16; b_ref : u32 : 16; count : u32 : 16; first_chapter_ref : u32 : 16; }
struct Chapter { major : u8 : 4; minor : u8 : 7; }
struct Nickname { ref : u32 : 32; }
struct Description { ref : u32 : 32; }
struct UnaryRelation { kind_ref : u32 : 32; to_ref : u32 : 16; }
struct BinaryRelation { kind_ref : u32 : 32; to_a_ref : u32 : 16; to_b_ref : u32 : 16; }
archive Graph {
    meta : Meta;
    vertices : vector< Character >;
    edges : vector< Coappearance >;
    vertices_data : multivector< 32, Nickname, Description, UnaryRelation, BinaryRelation >;
    chapters : vector< Chapter >;
    strings : raw_data;
} }`

	metaSchema = `namespace coappearances {
struct Meta { title_ref : u32 : 32; author_ref : u32 : 32; }
meta : Meta; }`

	verticesSchema = `namespace coappearances {
struct Character { name_ref : u32 : 32; }
vertices : vector< Character >; }`

	edgesSchema = `namespace coappearances {
struct Coappearance { a_ref : u32 : 16; b_ref : u32 : 16; count : u32 : 16; first_chapter_ref : u32 : 16; }
edges : vector< Coappearance >; }`

	chaptersSchema = `namespace coappearances {
struct Chapter { major : u8 : 4; minor : u8 : 7; }
chapters : vector< Chapter >; }`

	verticesDataSchema = `namespace coappearances {
struct Nickname { ref : u32 : 32; }
struct Description { ref : u32 : 32; }
struct UnaryRelation { kind_ref : u32 : 32; to_ref : u32 : 16; }
struct BinaryRelation { kind_ref : u32 : 32; to_a_ref : u32 : 16; to_b_ref : u32 : 16; }
vertices_data : multivector< 32, Nickname, Description, UnaryRelation, BinaryRelation >; }`

	verticesDataIndexSchema = `index(namespace coappearances {
struct Nickname { ref : u32 : 32; }
struct Description { ref : u32 : 32; }
struct UnaryRelation { kind_ref : u32 : 32; to_ref : u32 : 16; }
struct BinaryRelation { kind_ref : u32 : 32; to_a_ref : u32 : 16; to_b_ref : u32 : 16; }
vertices_data : multivector< 32, Nickname, Description, UnaryRelation, BinaryRelation >; })`

	stringsSchema = `namespace coappearances { strings : raw_data; }`
)

func graphSpec() ArchiveSpec {
	meta := layout.NewStructType("Meta", 8,
		layout.Field{Name: "title_ref", Offset: 0, Width: 32},
		layout.Field{Name: "author_ref", Offset: 32, Width: 32},
	)
	character := layout.NewStructType("Character", 4,
		layout.Field{Name: "name_ref", Offset: 0, Width: 32},
	)
	coappearance := layout.NewStructType("Coappearance", 8,
		layout.Field{Name: "a_ref", Offset: 0, Width: 16},
		layout.Field{Name: "b_ref", Offset: 16, Width: 16},
		layout.Field{Name: "count", Offset: 32, Width: 16},
		layout.Field{Name: "first_chapter_ref", Offset: 48, Width: 16},
	)
	chapter := layout.NewStructType("Chapter", 2,
		layout.Field{Name: "major", Offset: 0, Width: 4},
		layout.Field{Name: "minor", Offset: 4, Width: 7},
	)
	nickname := layout.NewStructType("Nickname", 4,
		layout.Field{Name: "ref", Offset: 0, Width: 32},
	)
	description := layout.NewStructType("Description", 4,
		layout.Field{Name: "ref", Offset: 0, Width: 32},
	)
	unary := layout.NewStructType("UnaryRelation", 6,
		layout.Field{Name: "kind_ref", Offset: 0, Width: 32},
		layout.Field{Name: "to_ref", Offset: 32, Width: 16},
	)
	binary := layout.NewStructType("BinaryRelation", 8,
		layout.Field{Name: "kind_ref", Offset: 0, Width: 32},
		layout.Field{Name: "to_a_ref", Offset: 32, Width: 16},
		layout.Field{Name: "to_b_ref", Offset: 48, Width: 16},
	)

	return ArchiveSpec{
		Name:   "Graph",
		Schema: graphSchema,
		Resources: []ResourceSpec{
			{Name: "meta", Schema: metaSchema, Kind: KindStruct, Element: meta},
			{Name: "vertices", Schema: verticesSchema, Kind: KindVector, Element: character},
			{Name: "edges", Schema: edgesSchema, Kind: KindVector, Element: coappearance},
			{
				Name:        "vertices_data",
				Schema:      verticesDataSchema,
				Kind:        KindMultiVector,
				Variants:    layout.NewVariantSet("VerticesData", nickname, description, unary, binary),
				Index:       layout.NewIndexType(32),
				IndexSchema: verticesDataIndexSchema,
			},
			{Name: "chapters", Schema: chaptersSchema, Kind: KindVector, Element: chapter},
			{Name: "strings", Schema: stringsSchema, Kind: KindRawData},
		},
	}
}

func buildGraph(t *testing.T, ctx context.Context, store *storage.Store) {
	t.Helper()

	spec := graphSpec()
	b, err := NewBuilder(ctx, store, spec)
	require.NoError(t, err)

	meta := view.NewValue(spec.Resources[0].Element)
	meta.SetUint("title_ref", 0)
	meta.SetUint("author_ref", 18)
	require.NoError(t, b.SetStruct(ctx, "meta", meta.Struct))

	vertices, err := b.StartVector("vertices")
	require.NoError(t, err)
	v := vertices.Grow()
	v.SetUint("name_ref", 5)
	v = vertices.Grow()
	v.SetUint("name_ref", 11)
	require.NoError(t, vertices.Close(ctx))

	edges, err := b.StartVector("edges")
	require.NoError(t, err)
	e := edges.Grow()
	e.SetUint("a_ref", 0)
	e.SetUint("b_ref", 1)
	e.SetUint("count", 3)
	e.SetUint("first_chapter_ref", 0)
	require.NoError(t, edges.Close(ctx))

	data, err := b.StartMultiVector("vertices_data")
	require.NoError(t, err)
	s, err := data.Add("Nickname")
	require.NoError(t, err)
	s.SetUint("ref", 7)
	require.NoError(t, data.FinishItem())
	s, err = data.Add("UnaryRelation")
	require.NoError(t, err)
	s.SetUint("kind_ref", 22)
	s.SetUint("to_ref", 0)
	require.NoError(t, data.FinishItem())
	require.NoError(t, data.Close(ctx))

	chapters, err := b.StartVector("chapters")
	require.NoError(t, err)
	c := chapters.Grow()
	c.SetUint("major", 1)
	c.SetUint("minor", 2)
	require.NoError(t, chapters.Close(ctx))

	require.NoError(t, b.SetRawData(ctx, "strings", []byte("a tale\x00a novelist\x00")))
}

func TestArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())
	buildGraph(t, ctx, store)

	a, err := Open(ctx, store, graphSpec())
	require.NoError(t, err)
	require.Equal(t, "Graph", a.Name())

	meta, ok := a.Struct("meta")
	require.True(t, ok)
	require.Equal(t, uint64(0), meta.Uint("title_ref"))
	require.Equal(t, uint64(18), meta.Uint("author_ref"))

	vertices, ok := a.Vector("vertices")
	require.True(t, ok)
	require.Equal(t, 2, vertices.Len())
	v0, err := vertices.At(0)
	require.NoError(t, err)
	require.Equal(t, uint64(5), v0.Uint("name_ref"))
	v1, err := vertices.At(1)
	require.NoError(t, err)
	require.Equal(t, uint64(11), v1.Uint("name_ref"))

	edges, ok := a.Vector("edges")
	require.True(t, ok)
	require.Equal(t, 1, edges.Len())
	e0, err := edges.At(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), e0.Uint("b_ref"))
	require.Equal(t, uint64(3), e0.Uint("count"))

	data, ok := a.MultiVector("vertices_data")
	require.True(t, ok)
	require.Equal(t, 2, data.Len())
	items, err := data.At(0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Nickname", items[0].View.Type().Name())
	require.Equal(t, uint64(7), items[0].View.Uint("ref"))
	items, err = data.At(1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "UnaryRelation", items[0].View.Type().Name())
	require.Equal(t, uint64(22), items[0].View.Uint("kind_ref"))

	chapters, ok := a.Vector("chapters")
	require.True(t, ok)
	c0, err := chapters.At(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), c0.Uint("major"))
	require.Equal(t, uint64(2), c0.Uint("minor"))

	strings, ok := a.RawData("strings")
	require.True(t, ok)
	require.Equal(t, []byte("a tale\x00a novelist\x00"), strings)

	// The multivector index is cumulative offsets with a trailing
	// sentinel: [0, 5, 12] over a 12-byte payload.
	index, err := store.Read(ctx, "vertices_data_index", verticesDataIndexSchema)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0, 5, 0, 0, 0, 12, 0, 0, 0}, index)
}

func TestNewBuilder_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemory()
	store := storage.NewStore(backend)
	buildGraph(t, ctx, store)

	snapshot := make(map[string][]byte)
	for _, name := range backend.Names() {
		data, err := backend.Read(ctx, name)
		require.NoError(t, err)
		snapshot[name] = data
	}

	_, err := NewBuilder(ctx, store, graphSpec())
	require.ErrorIs(t, err, fs.ErrExist)
	var ioErr *storage.IOError
	require.ErrorAs(t, err, &ioErr)
	require.Equal(t, "Graph.archive", ioErr.Resource)

	// The failed attempt must leave the stored archive untouched.
	require.ElementsMatch(t, mapKeys(snapshot), backend.Names())
	for name, want := range snapshot {
		got, err := backend.Read(ctx, name)
		require.NoError(t, err)
		require.Equal(t, want, got, "blob %q changed", name)
	}
}

func mapKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestOpen_MissingArchive(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())

	_, err := Open(ctx, store, graphSpec())
	require.ErrorIs(t, err, storage.ErrMissing)
}

func TestOpen_SchemaMismatch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())
	buildGraph(t, ctx, store)

	spec := graphSpec()
	spec.Schema += "\n// incompatible revision"

	_, err := Open(ctx, store, spec)
	var sigErr *storage.WrongSignatureError
	require.ErrorAs(t, err, &sigErr)
	require.Equal(t, "Graph.archive", sigErr.Resource)
	require.Contains(t, sigErr.Diff, "incompatible revision")
}

func TestOpen_MissingMember(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())

	spec := graphSpec()
	b, err := NewBuilder(ctx, store, spec)
	require.NoError(t, err)
	require.NoError(t, b.SetRawData(ctx, "strings", []byte("x")))

	// Mandatory members are validated eagerly on open.
	_, err = Open(ctx, store, spec)
	require.ErrorIs(t, err, storage.ErrMissing)
}

func TestOpen_OptionalMember(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())

	spec := ArchiveSpec{
		Name:   "Sparse",
		Schema: "archive Sparse",
		Resources: []ResourceSpec{
			{Name: "notes", Schema: "notes : raw_data;", Kind: KindRawData, Optional: true},
		},
	}

	_, err := NewBuilder(ctx, store, spec)
	require.NoError(t, err)

	a, err := Open(ctx, store, spec)
	require.NoError(t, err)

	notes, ok := a.RawData("notes")
	require.False(t, ok)
	require.Nil(t, notes)
}

func TestArchive_UndeclaredResourcePanics(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())
	buildGraph(t, ctx, store)

	a, err := Open(ctx, store, graphSpec())
	require.NoError(t, err)

	require.Panics(t, func() { a.RawData("no_such_member") })
	require.Panics(t, func() { a.Vector("strings") })
}

func TestBuilder_MemberContract(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())

	spec := graphSpec()
	b, err := NewBuilder(ctx, store, spec)
	require.NoError(t, err)

	_, err = b.StartVector("no_such_member")
	require.Error(t, err)

	_, err = b.StartVector("strings")
	require.Error(t, err)

	require.NoError(t, b.SetRawData(ctx, "strings", []byte("x")))
	err = b.SetRawData(ctx, "strings", []byte("y"))
	require.ErrorContains(t, err, "already written")

	wrong := view.NewValue(layout.NewStructType("Other", 8,
		layout.Field{Name: "x", Offset: 0, Width: 32}))
	err = b.SetStruct(ctx, "meta", wrong.Struct)
	require.ErrorContains(t, err, "expects Meta")
}

func TestOpen_TruncatedStruct(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemory())

	spec := graphSpec()
	spec.Resources = spec.Resources[:1] // meta only

	_, err := NewBuilder(ctx, store, spec)
	require.NoError(t, err)

	// Write a meta payload shorter than the declared struct size.
	require.NoError(t, store.Write(ctx, "meta", metaSchema, []byte{1, 2, 3}))

	_, err = Open(ctx, store, spec)
	require.ErrorIs(t, err, storage.ErrUnexpectedDataSize)
}
