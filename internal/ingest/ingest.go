// Package ingest loads the source document and turns it into plain text.
package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultMaxBytes is the default size limit for a source document.
const DefaultMaxBytes int64 = 50 << 20

var (
	// ErrTooLarge is returned when a document exceeds the size limit.
	ErrTooLarge = errors.New("document exceeds size limit")
	// ErrUnsupported is returned for content that is neither PDF nor UTF-8 text.
	ErrUnsupported = errors.New("unsupported document format")
)

var pdfMagic = []byte("%PDF-")

// Format is the detected document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// Document is a decoded source document.
type Document struct {
	Name     string
	Format   Format
	Text     string
	Pages    int
	Checksum string // sha256 of the raw bytes
	Size     int64
}

// LoadFile reads and decodes the document at path.
func LoadFile(path string, maxBytes int64) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(filepath.Base(path), f, maxBytes)
}

// Load reads at most maxBytes from r and decodes them.
func Load(name string, r io.Reader, maxBytes int64) (*Document, error) {
	data, err := ReadLimited(r, maxBytes)
	if err != nil {
		return nil, err
	}
	return Decode(name, data)
}

// ReadLimited reads r fully, failing with ErrTooLarge past maxBytes.
// A non-positive limit uses DefaultMaxBytes.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// Decode detects the format of data and extracts its text. PDFs are
// recognized by their header regardless of name.
func Decode(name string, data []byte) (*Document, error) {
	sum := sha256.Sum256(data)
	doc := &Document{
		Name:     name,
		Checksum: hex.EncodeToString(sum[:]),
		Size:     int64(len(data)),
	}

	switch {
	case bytes.HasPrefix(data, pdfMagic):
		text, pages, err := PDFText(data)
		if err != nil {
			return nil, err
		}
		doc.Format, doc.Text, doc.Pages = FormatPDF, text, pages
	case strings.EqualFold(filepath.Ext(name), ".pdf"):
		return nil, fmt.Errorf("%w: %s has no PDF header", ErrUnsupported, name)
	case utf8.Valid(data):
		doc.Format, doc.Text = FormatText, normalizeNewlines(string(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	return doc, nil
}

func normalizeNewlines(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ReplaceAll(s, "\r\n", "\n")
}
