// Package ingest reads the raw customer extract and coerces it into a typed table.
package ingest

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/churnlab/churnprep/internal/errors"
)

// RawBatch is the raw extract as opaque text tokens. Records share Header's
// column order.
type RawBatch struct {
	Source  string
	Header  []string
	Records [][]string
}

// Len returns the number of data records.
func (b *RawBatch) Len() int {
	return len(b.Records)
}

// HeaderIndex maps each header name to its position.
func (b *RawBatch) HeaderIndex() map[string]int {
	idx := make(map[string]int, len(b.Header))
	for i, h := range b.Header {
		idx[h] = i
	}
	return idx
}

// ReadCSV opens path on fs and parses it with ParseCSV.
func ReadCSV(fs afero.Fs, path string) (*RawBatch, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.FileError(err, path)
	}
	defer f.Close()

	return ParseCSV(f, path)
}

// ParseCSV reads a header line followed by data records. Every record must
// have as many cells as the header. Cells are kept verbatim, whitespace included.
func ParseCSV(r io.Reader, source string) (*RawBatch, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Newf("raw extract %s is empty", source).
			Component("ingest").
			Category(errors.CategoryFileParsing).
			FileContext(source).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileParsing).
			FileContext(source).
			Context("operation", "read-header").
			Build()
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	batch := &RawBatch{Source: source, Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Component("ingest").
				Category(errors.CategoryFileParsing).
				FileContext(source).
				Context("record", len(batch.Records)+1).
				Build()
		}
		batch.Records = append(batch.Records, rec)
	}

	return batch, nil
}
