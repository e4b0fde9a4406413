package gcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/moturus/gantry/pkg/pipeline"
)

// Fingerprint hashes the declared input files (path plus content) into a hex
// digest. Inputs are sorted so declaration order doesn't change the key, and
// a missing input contributes its absence rather than erroring: a deleted
// lockfile should produce a different key, not a broken run.
func Fingerprint(inputs []string) string {
	sorted := append([]string(nil), inputs...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, path := range sorted {
		io.WriteString(h, path)
		h.Write([]byte{0})

		f, err := os.Open(path)
		if err != nil {
			io.WriteString(h, "absent")
		} else {
			io.Copy(h, f)
			f.Close()
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Key derives the store key for a cache spec: a stable prefix, the folder's
// base name for human inspection, and a truncated fingerprint.
func Key(spec pipeline.CacheSpec) string {
	return fmt.Sprintf("%s%s-%s", keyPrefix, filepath.Base(spec.Folder), Fingerprint(spec.Inputs)[:16])
}

// keyPrefix namespaces cache entries in the blob store and the index.
const keyPrefix = "cache/"
