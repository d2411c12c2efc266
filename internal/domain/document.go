package domain

import (
	"path/filepath"
	"strings"
)

// Format is the detected format of a source document.
type Format string

const (
	// FormatPDF is a PDF document.
	FormatPDF Format = "pdf"
	// FormatPlainText is a plain UTF-8 text document.
	FormatPlainText Format = "plain-text"
	// FormatUnsupported is any extension the pipeline cannot read.
	FormatUnsupported Format = "unsupported"
)

// Document is one raw file read from the corpus directory.
// It is read once, never mutated, and discarded after extraction.
type Document struct {
	Title  string // file name without extension, used for chunk ids
	Source string // file name with extension, surfaced as citation source
	Format Format
	Data   []byte
}

// FormatForFile detects the document format from a file name, case-insensitively.
func FormatForFile(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".txt":
		return FormatPlainText
	default:
		return FormatUnsupported
	}
}

// TitleForFile strips the extension from a file name.
func TitleForFile(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
