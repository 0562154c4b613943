// Package source provides the document feeds the indexing pipeline reads
// PDFs from.
package source

import (
	"path"
	"strings"
)

const (
	KindPostgres = "postgres"
	KindDir      = "dir"
	KindWeb      = "web"
	KindS3       = "s3"
)

func isPDF(name string) bool {
	return strings.EqualFold(path.Ext(name), ".pdf")
}
