// Package audit captures every exchange with the order-entry service for
// later inspection: a CSV journal appended per call, exportable to parquet.
package audit

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// JournalFile is the journal's name inside its directory.
const JournalFile = "exchanges.csv"

var journalHeader = []string{
	"id", "time", "method", "endpoint", "ref_no", "request", "response", "outcome", "error", "duration_ms", "attempt",
}

// Journal appends exchanges to a CSV file. It is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *csv.Writer
	logger *zap.Logger
}

// OpenJournal opens (creating when needed) the journal inside dir.
func OpenJournal(dir string, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "[audit] - failed to create audit directory")
	}
	path := filepath.Join(dir, JournalFile)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "[audit] - failed to open journal")
	}
	info, err := file.Stat()
	if err != nil {
		return nil, errors.CombineErrors(errors.Wrap(err, "[audit] - failed to stat journal"), file.Close())
	}

	j := &Journal{path: path, file: file, w: csv.NewWriter(file), logger: logger.Named("audit")}
	if info.Size() == 0 {
		if err := j.w.Write(journalHeader); err != nil {
			return nil, errors.CombineErrors(errors.Wrap(err, "[audit] - failed to write header"), file.Close())
		}
		j.w.Flush()
	}
	return j, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string { return j.path }

// Record appends e and flushes it to disk.
func (j *Journal) Record(e Exchange) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	row := []string{
		e.ID,
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Method,
		e.Endpoint,
		e.RefNo,
		e.Request,
		e.Response,
		e.Outcome,
		e.Error,
		strconv.FormatInt(e.Duration.Milliseconds(), 10),
		strconv.Itoa(e.Attempt),
	}
	if err := j.w.Write(row); err != nil {
		return errors.Wrap(err, "[audit] - failed to write exchange")
	}
	j.w.Flush()
	return errors.Wrap(j.w.Error(), "[audit] - failed to flush journal")
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.w.Flush()
	return errors.CombineErrors(j.w.Error(), j.file.Close())
}

// ReadJournal loads every exchange from a journal file.
func ReadJournal(path string) ([]Exchange, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "[audit] - failed to open journal")
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(journalHeader)
	var out []Exchange
	for line := 0; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "[audit] - failed to read journal line %d", line+1)
		}
		if line == 0 && row[0] == journalHeader[0] {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, row[1])
		if err != nil {
			return nil, errors.Wrapf(err, "[audit] - bad time on journal line %d", line+1)
		}
		ms, err := strconv.ParseInt(row[9], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "[audit] - bad duration on journal line %d", line+1)
		}
		attempt, err := strconv.Atoi(row[10])
		if err != nil {
			return nil, errors.Wrapf(err, "[audit] - bad attempt on journal line %d", line+1)
		}
		out = append(out, Exchange{
			ID:       row[0],
			Time:     ts,
			Method:   row[2],
			Endpoint: row[3],
			RefNo:    row[4],
			Request:  row[5],
			Response: row[6],
			Outcome:  row[7],
			Error:    row[8],
			Duration: time.Duration(ms) * time.Millisecond,
			Attempt:  attempt,
		})
	}
	return out, nil
}
