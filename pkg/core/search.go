package core

import "golang.org/x/text/cases"

// fold maps s to its Unicode case-folded form for caseless matching.
func fold(s string) string {
	return cases.Fold().String(s)
}
