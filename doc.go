// Package flatarc is a binary serialization runtime for large,
// read-mostly, structurally-typed datasets.
//
// Flatarc stores data as archives: named sets of schema-stamped
// resources that are written once through a builder and read back as
// zero-copy views. Structs are bit-packed into fixed-size records, so a
// graph with hundreds of millions of edges loads with no parsing and no
// per-record allocation.
//
// # Quick Start
//
// Describe the layout once:
//
//	character := layout.NewStructType("Character", 4,
//	    layout.Field{Name: "name_ref", Offset: 0, Width: 32})
//
//	spec := flatarc.ArchiveSpec{
//	    Name:   "Graph",
//	    Schema: graphSchema,
//	    Resources: []flatarc.ResourceSpec{
//	        {Name: "vertices", Schema: verticesSchema, Kind: flatarc.KindVector, Element: character},
//	    },
//	}
//
// Build:
//
//	store := storage.NewStore(storage.NewMemory())
//	b, _ := flatarc.NewBuilder(ctx, store, spec)
//	vertices, _ := b.StartVector("vertices")
//	vertices.Grow().SetUint("name_ref", 5)
//	_ = vertices.Close(ctx)
//
// Read:
//
//	a, _ := flatarc.Open(ctx, store, spec)
//	vertices, _ := a.Vector("vertices")
//	v, _ := vertices.At(0)
//	fmt.Println(v.Uint("name_ref"))
//
// # Storage
//
// Archives live on a storage.Backend: in-memory, a local directory
// with memory-mapped reads, MinIO, S3, or DynamoDB. Every resource is
// schema-checked on read; a mismatch fails with a textual diff instead
// of silently decoding garbage.
//
// # Concurrency
//
// Construction is single-writer and synchronous. Builders, external
// vectors, and multivectors must be driven from one goroutine; read
// views are immutable and safe to share.
package flatarc
