package amp

import "github.com/psilLang/intcode/pkg/types"

// Permutations calls fn with every ordering of items (Heap's algorithm).
// The slice passed to fn is reused between calls; fn must copy it to keep
// it. Iteration stops at the first error fn returns.
func Permutations(items []types.Word, fn func([]types.Word) error) error {
	p := append([]types.Word(nil), items...)
	c := make([]int, len(p))

	if err := fn(p); err != nil {
		return err
	}
	for i := 1; i < len(p); {
		if c[i] < i {
			if i%2 == 0 {
				p[0], p[i] = p[i], p[0]
			} else {
				p[c[i]], p[i] = p[i], p[c[i]]
			}
			if err := fn(p); err != nil {
				return err
			}
			c[i]++
			i = 1
		} else {
			c[i] = 0
			i++
		}
	}
	return nil
}
