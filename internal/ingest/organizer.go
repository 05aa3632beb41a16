package ingest

import (
	"path"
	"strings"
	"time"

	"chart-race/internal/utils"
)

const failedPrefix = "failed/"

// SourceName is the dataset identity of an ingest key: the key relative to
// the ingest prefix. It is what `dataset.key` names when the source is db.
func SourceName(key, ingestPrefix string) string {
	return strings.TrimPrefix(key, ingestPrefix)
}

// FailedKey is where an unreadable file is parked, stamped so repeated
// failures of the same name do not overwrite each other.
func FailedKey(key string, at time.Time) string {
	base := utils.Sanitize(path.Base(key), "dataset.csv")
	return failedPrefix + at.UTC().Format("20060102T150405") + "-" + base
}
