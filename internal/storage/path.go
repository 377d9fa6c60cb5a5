package storage

import (
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackExtension = "bin"

// PathGenerator names uploaded objects as {prefix}{unixMillis}-{base36 random}.{ext}.
type PathGenerator struct {
	Prefix string
	Now    func() time.Time
	Rand   func() uint64
}

// NewPathGenerator returns a generator using the wall clock and a random source
func NewPathGenerator(prefix string) *PathGenerator {
	return &PathGenerator{Prefix: prefix, Now: time.Now, Rand: rand.Uint64}
}

// ObjectPath builds the object name for an attachment. The extension is taken
// from filename, or derived from contentType when the name has none.
func (g *PathGenerator) ObjectPath(filename, contentType string) string {
	var b strings.Builder
	b.WriteString(g.Prefix)
	b.WriteString(strconv.FormatInt(g.Now().UnixMilli(), 10))
	b.WriteByte('-')
	b.WriteString(strconv.FormatUint(g.Rand(), 36))
	b.WriteByte('.')
	b.WriteString(Extension(filename, contentType))
	return b.String()
}

// Extension returns a lower-case alphanumeric extension without the dot.
func Extension(filename, contentType string) string {
	if ext := cleanExtension(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if mt := mimetype.Lookup(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])); mt != nil {
		if ext := cleanExtension(mt.Extension()); ext != "" {
			return ext
		}
	}
	return fallbackExtension
}

func cleanExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
