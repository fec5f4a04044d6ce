// Package output writes extracted documents and command results.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klytics/chojson/internal/extract"
)

// ErrSerialization is returned when the document cannot be encoded or the
// target cannot be written.
var ErrSerialization = errors.New("serialization failure")

// EncodeDocument writes doc as an indented JSON array of single-key objects.
// Non-ASCII text and HTML characters are written as-is.
func EncodeDocument(w io.Writer, doc []extract.Record) error {
	if doc == nil {
		doc = []extract.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: could not encode document: %v", ErrSerialization, err)
	}
	return nil
}

// WriteDocument encodes doc and stores it at path. The file is written to a
// temporary sibling and renamed into place, so path never holds a partial
// document.
func WriteDocument(path string, doc []extract.Record) error {
	var buf bytes.Buffer
	if err := EncodeDocument(&buf, doc); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: could not create %s: %v", ErrSerialization, path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: could not write %s: %v", ErrSerialization, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: could not write %s: %v", ErrSerialization, path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("%w: could not set permissions on %s: %v", ErrSerialization, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: could not save %s: %v", ErrSerialization, path, err)
	}
	return nil
}
