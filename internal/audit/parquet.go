package audit

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// ExportParquet converts the CSV journal at journalPath into one parquet
// file per day under dir and returns the files written.
func ExportParquet(journalPath, dir string) ([]string, error) {
	exchanges, err := ReadJournal(journalPath)
	if err != nil {
		return nil, err
	}
	if len(exchanges) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "[audit] - failed to create parquet directory")
	}

	byDay := make(map[string][]Exchange)
	for _, e := range exchanges {
		day := e.Time.Format("2006-01-02")
		byDay[day] = append(byDay[day], e)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	files := make([]string, 0, len(days))
	for _, day := range days {
		filename := filepath.Join(dir, "exchanges_"+day+".parquet")
		if err := writeExchanges(filename, byDay[day]); err != nil {
			return files, err
		}
		files = append(files, filename)
	}
	return files, nil
}

func writeExchanges(filename string, exchanges []Exchange) error {
	fw, err := local.NewLocalFileWriter(filename)
	if err != nil {
		return errors.Wrap(err, "[audit] - failed to create parquet file")
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ExchangeRecord), 4)
	if err != nil {
		return errors.Wrap(err, "[audit] - failed to create parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_GZIP
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024

	for _, e := range exchanges {
		if err := pw.Write(toRecord(e)); err != nil {
			return errors.Wrap(err, "[audit] - failed to write parquet row")
		}
	}
	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "[audit] - failed to finalize parquet file")
	}
	return nil
}

// ReadParquet loads every row of an exported file.
func ReadParquet(filename string) ([]ExchangeRecord, error) {
	fr, err := local.NewLocalFileReader(filename)
	if err != nil {
		return nil, errors.Wrap(err, "[audit] - failed to open parquet file")
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ExchangeRecord), 4)
	if err != nil {
		return nil, errors.Wrap(err, "[audit] - failed to create parquet reader")
	}
	defer pr.ReadStop()

	rows := make([]ExchangeRecord, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, errors.Wrap(err, "[audit] - failed to read parquet rows")
	}
	return rows, nil
}
