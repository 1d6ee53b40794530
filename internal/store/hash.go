package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ContentHash returns the hex SHA-256 of a file's content. Files whose hash
// is unchanged are skipped on reindex.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// ComputeDeclarationsHash computes a deterministic hash of a file's
// declaration surface: the names and kinds it declares. Positions do not
// affect the hash, so moving code around keeps it stable.
func ComputeDeclarationsHash(decls []*Declaration) string {
	keys := make([]string, len(decls))
	for i, d := range decls {
		keys[i] = d.Kind + ":" + d.Name + ":" + d.OwnerKind
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s\n", k)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
