package audit

import "time"

// Exchange is one logical request/response pair with the order-entry
// service. Secrets are masked before an Exchange is built.
type Exchange struct {
	ID       string
	Time     time.Time
	Method   string
	Endpoint string
	RefNo    string
	Request  string
	Response string
	Outcome  string
	Error    string
	Duration time.Duration
	// Attempt is the 1-based physical attempt within one logical call.
	Attempt int
}

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ExchangeRecord is the parquet row of an Exchange
type ExchangeRecord struct {
	ID         string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	Timestamp  int64  `parquet:"name=timestamp, type=INT64, encoding=DELTA_BINARY_PACKED"`
	Date       string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Method     string `parquet:"name=method, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Endpoint   string `parquet:"name=endpoint, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	RefNo      string `parquet:"name=ref_no, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	Request    string `parquet:"name=request, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	Response   string `parquet:"name=response, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	Outcome    string `parquet:"name=outcome, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Error      string `parquet:"name=error, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"`
	DurationMs int64  `parquet:"name=duration_ms, type=INT64, encoding=PLAIN"`
	Attempt    int32  `parquet:"name=attempt, type=INT32, encoding=PLAIN"`
}

func toRecord(e Exchange) ExchangeRecord {
	return ExchangeRecord{
		ID:         e.ID,
		Timestamp:  e.Time.UnixMilli(),
		Date:       e.Time.Format("2006-01-02"),
		Method:     e.Method,
		Endpoint:   e.Endpoint,
		RefNo:      e.RefNo,
		Request:    e.Request,
		Response:   e.Response,
		Outcome:    e.Outcome,
		Error:      e.Error,
		DurationMs: e.Duration.Milliseconds(),
		Attempt:    int32(e.Attempt),
	}
}
