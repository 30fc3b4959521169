// Package fileid derives deterministic identifiers for sources and chunks.
package fileid

import (
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

const filePrefix = "file:"

// namespace scopes the UUIDv5 identifiers of this engine.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/hyperjump/bunkatsu/chunk"))

// ChunkID returns the stable id of the chunk at ordinal within the source at locator.
// Re-assembling the same source yields the same ids.
func ChunkID(locator string, ordinal int) string {
	return uuid.NewSHA1(namespace, []byte(locator+"#"+strconv.Itoa(ordinal))).String()
}

// FileLocator returns the source locator used for a file on disk. Same path always yields
// the same locator.
func FileLocator(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return filePrefix + filepath.Clean(abs)
}
