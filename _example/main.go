package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/hupe1980/flatarc"
	"github.com/hupe1980/flatarc/layout"
	"github.com/hupe1980/flatarc/storage"
)

// Builds a tiny coappearance graph in memory and reads it back through
// zero-copy views.
func main() {
	ctx := context.Background()

	character := layout.NewStructType("Character", 4,
		layout.Field{Name: "name_ref", Offset: 0, Width: 32},
	)
	coappearance := layout.NewStructType("Coappearance", 8,
		layout.Field{Name: "a_ref", Offset: 0, Width: 16},
		layout.Field{Name: "b_ref", Offset: 16, Width: 16},
		layout.Field{Name: "count", Offset: 32, Width: 16},
		layout.Field{Name: "first_chapter_ref", Offset: 48, Width: 16},
	)
	nickname := layout.NewStructType("Nickname", 4,
		layout.Field{Name: "ref", Offset: 0, Width: 32},
	)

	spec := flatarc.ArchiveSpec{
		Name:   "Graph",
		Schema: "archive Graph { vertices; edges; vertices_data; strings; }",
		Resources: []flatarc.ResourceSpec{
			{Name: "vertices", Schema: "vertices : vector< Character >;", Kind: flatarc.KindVector, Element: character},
			{Name: "edges", Schema: "edges : vector< Coappearance >;", Kind: flatarc.KindVector, Element: coappearance},
			{
				Name:        "vertices_data",
				Schema:      "vertices_data : multivector< 32, Nickname >;",
				Kind:        flatarc.KindMultiVector,
				Variants:    layout.NewVariantSet("VerticesData", nickname),
				Index:       layout.NewIndexType(32),
				IndexSchema: "index(vertices_data : multivector< 32, Nickname >;)",
			},
			{Name: "strings", Schema: "strings : raw_data;", Kind: flatarc.KindRawData},
		},
	}

	store := storage.NewStore(storage.NewMemory())
	logger := flatarc.NewTextLogger(slog.LevelDebug)

	// Build.
	b, err := flatarc.NewBuilder(ctx, store, spec, flatarc.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	strings := []byte("\x00")
	intern := func(s string) uint64 {
		off := uint64(len(strings))
		strings = append(strings, s...)
		strings = append(strings, 0)
		return off
	}

	vertices, err := b.StartVector("vertices")
	if err != nil {
		log.Fatal(err)
	}
	for _, name := range []string{"Valjean", "Javert", "Fantine"} {
		vertices.Grow().SetUint("name_ref", intern(name))
	}
	if err := vertices.Close(ctx); err != nil {
		log.Fatal(err)
	}

	edgeVec, err := b.StartVector("edges")
	if err != nil {
		log.Fatal(err)
	}
	e := edgeVec.Grow()
	e.SetUint("a_ref", 0)
	e.SetUint("b_ref", 1)
	e.SetUint("count", 5)
	if err := edgeVec.Close(ctx); err != nil {
		log.Fatal(err)
	}

	data, err := b.StartMultiVector("vertices_data")
	if err != nil {
		log.Fatal(err)
	}
	n, err := data.Add("Nickname")
	if err != nil {
		log.Fatal(err)
	}
	n.SetUint("ref", intern("24601"))
	if err := data.FinishItem(); err != nil {
		log.Fatal(err)
	}
	for i := 1; i < vertices.Len(); i++ {
		if err := data.FinishItem(); err != nil {
			log.Fatal(err)
		}
	}
	if err := data.Close(ctx); err != nil {
		log.Fatal(err)
	}

	if err := b.SetRawData(ctx, "strings", strings); err != nil {
		log.Fatal(err)
	}

	// Read back.
	a, err := flatarc.Open(ctx, store, spec, flatarc.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	table, _ := a.RawData("strings")
	str := func(off uint64) string {
		end := off
		for table[end] != 0 {
			end++
		}
		return string(table[off:end])
	}

	verts, _ := a.Vector("vertices")
	attachments, _ := a.MultiVector("vertices_data")
	for i := 0; i < verts.Len(); i++ {
		v, err := verts.At(i)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("vertex %d: %s", i, str(v.Uint("name_ref")))
		items, err := attachments.At(i)
		if err != nil {
			log.Fatal(err)
		}
		for _, item := range items {
			fmt.Printf(" (aka %s)", str(item.View.Uint("ref")))
		}
		fmt.Println()
	}

	edgesView, _ := a.Vector("edges")
	for i := 0; i < edgesView.Len(); i++ {
		e, err := edgesView.At(i)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("edge: %d -> %d (count %d)\n", e.Uint("a_ref"), e.Uint("b_ref"), e.Uint("count"))
	}
}
