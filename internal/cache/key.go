package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key computes the content-address for one (repo, path, ref) tuple. It is a
// pure function: identical tuples always hash identically, and any field
// change produces a new key. The 64-bit digest renders as 16 fixed-width hex
// characters; truncation-width collisions are an accepted tradeoff, not a
// correctness guarantee.
func Key(repo, path, refType, refValue string) string {
	canonical := repo + "#" + refType + ":" + refValue + "#" + path
	return fmt.Sprintf("%016x", xxhash.Sum64String(canonical))
}
