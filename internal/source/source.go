// Package source feeds schedule payloads from outside the daemon into the
// ingestion coordinator: a periodic HTTP fetch and a watched local file.
package source

import (
	"path/filepath"
	"strings"

	"github.com/sweeney/okay-to-wake/internal/ingest"
	"github.com/sweeney/okay-to-wake/internal/parse"
)

// Source names, as reported to the coordinator and in metrics.
const (
	NameFetch = "fetch"
	NameFile  = "file"
)

// Ingester accepts a schedule payload from a named source.
type Ingester interface {
	IngestFrom(source string, payload []byte, kind parse.Kind) (ingest.Result, error)
}

var _ Ingester = (*ingest.Coordinator)(nil)

// KindForPath guesses the payload kind from a file extension.
func KindForPath(path string) parse.Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parse.KindJSON
	case ".yaml", ".yml":
		return parse.KindYAML
	default:
		return parse.KindText
	}
}
