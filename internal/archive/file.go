package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/spec-kit/ticketdesk/internal/transcript"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// FileArchive writes transcripts into a directory, typically one served over HTTP.
type FileArchive struct {
	dir     string
	baseURL string
}

// NewFileArchive stores under dir; references are baseURL + file name, or the
// absolute path when baseURL is empty.
func NewFileArchive(dir, baseURL string) *FileArchive {
	return &FileArchive{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload writes the document atomically.
func (f *FileArchive) Upload(ctx context.Context, ticketID int64, doc *transcript.Document) (string, error) {
	if err := checkDocument(ticketID, doc); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewArchivalError("transcript upload aborted", err)
	}
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return "", apperrors.NewArchivalError("create archive directory", err)
	}
	target := filepath.Join(f.dir, doc.FileName)
	if err := atomic.WriteFile(target, bytes.NewReader(doc.Body)); err != nil {
		return "", apperrors.NewArchivalError(fmt.Sprintf("write transcript %d", ticketID), err)
	}
	if f.baseURL != "" {
		return f.baseURL + "/" + doc.FileName, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target, nil
	}
	return abs, nil
}
