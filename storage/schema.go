package storage

import "github.com/pmezard/go-difflib/difflib"

// schemasEqual reports whether a stored schema matches the expected
// one. Comparison is exact text equality: schemas are generated
// artifacts, so cosmetic divergence already signals a different
// generator run. Relationship annotations (@explicit_reference,
// @bound_implicitly) are inert metadata but participate in equality.
func schemasEqual(stored, expected string) bool {
	return stored == expected
}

// schemaDiff renders a unified diff from the stored schema to the
// expected one for WrongSignatureError diagnostics.
func schemaDiff(stored, expected string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(stored),
		B:        difflib.SplitLines(expected),
		FromFile: "stored",
		ToFile:   "expected",
		Context:  2,
	})
	if err != nil {
		// difflib only fails on writer errors, which cannot happen with
		// the string buffer it uses internally.
		return "(diff unavailable)"
	}
	return text
}
