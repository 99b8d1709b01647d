// Package export encodes county statistics tables as CSV, XLSX or Parquet.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/sells-group/sprawl-cli/internal/sprawl"
)

// Format is an output file format.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "CSV"
	FormatXLSX    Format = "XLSX"
	FormatParquet Format = "PARQUET"
)

// SheetName is the worksheet written by XLSX exports.
const SheetName = "county_stats"

// ParseFormat parses a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatParquet:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", eris.Errorf("export: unsupported format %q", s)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return ".xlsx"
	case FormatParquet:
		return ".parquet"
	default:
		return ".csv"
	}
}

// ContentType returns the MIME type used when uploading.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv"
	}
}

// Write encodes rows to w in the given format. Columns always follow
// sprawl.Columns.
func Write(w io.Writer, f Format, rows []sprawl.CountyStat) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatParquet:
		return WriteParquet(w, rows)
	}
	return eris.Errorf("export: unsupported format %q", f)
}

// WriteCSV writes a header line followed by one line per row. An empty
// table still gets its header.
func WriteCSV(w io.Writer, rows []sprawl.CountyStat) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(rows) == 0 {
		if err := enc.EncodeHeader(sprawl.CountyStat{}); err != nil {
			return eris.Wrap(err, "export: csv header")
		}
	} else if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "export: csv encode")
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: csv flush")
}

// yearUnmarshalers decodes the year column with sprawl.ParseYear, so
// tables that went through a spreadsheet ("2021.0") still load.
var yearUnmarshalers = csvutil.UnmarshalFunc(func(data []byte, year *int32) error {
	y, err := sprawl.ParseYear(string(data))
	if err != nil {
		return eris.Wrapf(err, "parse year %q", data)
	}
	*year = int32(y) // #nosec G115 -- calendar years fit in int32
	return nil
})

// ReadCSV decodes a table written by WriteCSV or by a remote CSV export.
// Extra columns such as system:index and .geo are ignored.
func ReadCSV(r io.Reader) ([]sprawl.CountyStat, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "export: csv header")
	}
	dec.WithUnmarshalers(yearUnmarshalers)

	var rows []sprawl.CountyStat
	for {
		var row sprawl.CountyStat
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "export: csv row %d", len(rows)+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteXLSX writes a single worksheet with a header row.
func WriteXLSX(w io.Writer, rows []sprawl.CountyStat) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range sprawl.Columns {
		header.AddCell().SetString(col)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		for _, field := range r.Fields() {
			cell := row.AddCell()
			switch v := field.Value.(type) {
			case string:
				cell.SetString(v)
			case int32:
				cell.SetInt(int(v))
			case float64:
				cell.SetFloat(v)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// WriteParquet writes a Snappy-compressed Parquet file.
func WriteParquet(w io.Writer, rows []sprawl.CountyStat) error {
	pw, err := writer.NewParquetWriterFromWriter(w, new(sprawl.CountyStat), 1)
	if err != nil {
		return eris.Wrap(err, "export: create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return eris.Wrapf(err, "export: write parquet row %d", i)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return eris.Wrap(err, "export: finish parquet")
	}
	return nil
}
