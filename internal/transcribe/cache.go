package transcribe

import (
	"log/slog"
	"os"
)

// cacheSuffix is appended to the source media path to form the cache key, so
// the cached transcript travels with the source file.
const cacheSuffix = ".transcript.txt"

// Cache is a read-through/write-through transcript cache keyed by source
// media path.
type Cache struct {
	log *slog.Logger
}

func NewCache(log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{log: log}
}

// Path returns the cache location for a source file.
func (c *Cache) Path(sourcePath string) string {
	return sourcePath + cacheSuffix
}

// Lookup returns the cached transcript text for the source, if present.
// An unreadable cache file is a miss, not an error.
func (c *Cache) Lookup(sourcePath string) (string, bool) {
	b, err := os.ReadFile(c.Path(sourcePath))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Store writes the transcript next to the source file. Failure to cache is
// logged and swallowed; the pipeline result does not depend on it.
func (c *Cache) Store(sourcePath, text string) {
	path := c.Path(sourcePath)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		c.log.Warn("could not save transcript cache", "path", path, "error", err)
	}
}
