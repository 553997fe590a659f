package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqualPrimitives(t *testing.T) {
	require.True(t, Equal(Int, Int))
	require.False(t, Equal(Int, Float))
}

func TestEqualArraysBySizeAndElem(t *testing.T) {
	a := FixedArray(Int, 3)
	b := FixedArray(Int, 3)
	c := FixedArray(Int, 4)
	d := Array(Int, nil)

	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
	require.False(t, Equal(a, d))
}

func TestStructEqualityIsNominal(t *testing.T) {
	s1 := StructOf("Point", []Field{{Name: "x", Type: Int}})
	s2 := StructOf("Point", []Field{{Name: "x", Type: Int}, {Name: "y", Type: Int}})
	s3 := StructOf("Other", []Field{{Name: "x", Type: Int}})

	require.True(t, Equal(s1, s2), "struct equality is by name only")
	require.False(t, Equal(s1, s3))
}

func TestFieldIndexStability(t *testing.T) {
	s := StructOf("N", []Field{{Name: "v", Type: Int}, {Name: "next", Type: Reference(StructPlaceholder("N"))}})
	require.Equal(t, 0, s.FieldIndex("v"))
	require.Equal(t, 1, s.FieldIndex("next"))
	require.Equal(t, -1, s.FieldIndex("missing"))
}

func TestReferenceEquality(t *testing.T) {
	r1 := Reference(Int)
	r2 := Reference(Int)
	r3 := Reference(Float)
	require.True(t, Equal(r1, r2))
	require.False(t, Equal(r1, r3))
}
