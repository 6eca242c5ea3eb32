// Package schemes keeps the scheme master used to reject purchases the
// exchange would refuse anyway.
package schemes

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var header = []string{"scheme_code", "isin", "scheme_name", "amc_code", "purchase_allowed", "minimum_purchase_amount", "last_nav"}

// column aliases accepted when reading a master file
var aliases = map[string]string{
	"scheme_code":             "scheme_code",
	"isin":                    "isin",
	"scheme_name":             "scheme_name",
	"name":                    "scheme_name",
	"amc_code":                "amc_code",
	"amc":                     "amc_code",
	"purchase_allowed":        "purchase_allowed",
	"minimum_purchase_amount": "minimum_purchase_amount",
	"min_purchase":            "minimum_purchase_amount",
	"last_nav":                "last_nav",
	"nav":                     "last_nav",
}

// Manager holds the scheme master in memory.
type Manager struct {
	path   string
	http   *resty.Client
	logger *zap.Logger

	mu      sync.RWMutex
	schemes map[string]Scheme
}

// NewManager creates a manager persisting to path.
func NewManager(path string, logger *zap.Logger) *Manager {
	return &Manager{
		path:    path,
		http:    resty.New(),
		logger:  logger.Named("schemes"),
		schemes: make(map[string]Scheme),
	}
}

// Download fetches the master file from url, stores it at the manager's path
// and loads it.
func (m *Manager) Download(ctx context.Context, url string) error {
	m.logger.Info("downloading scheme master", zap.String("url", url))
	resp, err := m.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return errors.Wrap(err, "[schemes] - failed to download scheme master")
	}
	if resp.IsError() {
		return errors.Newf("[schemes] - scheme master download returned %d", resp.StatusCode())
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return errors.Wrap(err, "[schemes] - failed to create scheme directory")
	}
	if err := os.WriteFile(m.path, resp.Body(), 0o644); err != nil {
		return errors.Wrap(err, "[schemes] - failed to save scheme master")
	}
	return m.Load()
}

// Load reads the master file at the manager's path.
func (m *Manager) Load() error {
	file, err := os.Open(m.path)
	if err != nil {
		return errors.Wrap(err, "[schemes] - failed to open scheme master")
	}
	defer file.Close()
	return m.LoadFrom(file)
}

// LoadFrom replaces the in-memory master with the rows read from r. Comma
// and pipe separated files are both accepted; headers are matched
// case-insensitively.
func (m *Manager) LoadFrom(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "[schemes] - failed to read scheme master")
	}
	reader := csv.NewReader(strings.NewReader(string(data)))
	firstLine, _, _ := strings.Cut(string(data), "\n")
	if strings.Contains(firstLine, "|") {
		reader.Comma = '|'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	head, err := reader.Read()
	if err != nil {
		return errors.Wrap(err, "[schemes] - failed to read header")
	}
	columns := make(map[string]int)
	for i, col := range head {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(col), " ", "_"))
		if canonical, ok := aliases[key]; ok {
			columns[canonical] = i
		}
	}
	if _, ok := columns["scheme_code"]; !ok {
		return errors.New("[schemes] - scheme master has no scheme code column")
	}

	get := func(record []string, col string) string {
		i, ok := columns[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	loaded := make(map[string]Scheme)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "[schemes] - failed to read scheme row")
		}
		code := get(record, "scheme_code")
		if code == "" {
			continue
		}
		loaded[code] = Scheme{
			Code:            code,
			ISIN:            get(record, "isin"),
			Name:            get(record, "scheme_name"),
			AMC:             get(record, "amc_code"),
			PurchaseAllowed: parseFlag(get(record, "purchase_allowed")),
			MinPurchase:     parseDecimalOrZero(get(record, "minimum_purchase_amount")),
			LastNAV:         parseDecimalOrZero(get(record, "last_nav")),
		}
	}

	m.mu.Lock()
	m.schemes = loaded
	m.mu.Unlock()
	m.logger.Info("loaded scheme master", zap.Int("schemes", len(loaded)))
	return nil
}

// Save writes the in-memory master to the manager's path as CSV.
func (m *Manager) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return errors.Wrap(err, "[schemes] - failed to create scheme directory")
	}
	file, err := os.Create(m.path)
	if err != nil {
		return errors.Wrap(err, "[schemes] - failed to create scheme master")
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "[schemes] - failed to write header")
	}
	for _, s := range m.All() {
		allowed := "N"
		if s.PurchaseAllowed {
			allowed = "Y"
		}
		row := []string{s.Code, s.ISIN, s.Name, s.AMC, allowed, s.MinPurchase.String(), s.LastNAV.String()}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "[schemes] - failed to write scheme row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "[schemes] - failed to flush scheme master")
}

// Lookup returns the scheme with the given exchange code.
func (m *Manager) Lookup(code string) (Scheme, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemes[code]
	return s, ok
}

// Len returns the number of loaded schemes.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.schemes)
}

// All returns every scheme ordered by code.
func (m *Manager) All() []Scheme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Scheme, 0, len(m.schemes))
	for _, s := range m.schemes {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// SyncFromKite refreshes the purchase flag, minimum purchase amount and NAV
// of every loaded scheme whose ISIN Kite lists. It returns the number of
// schemes updated.
func (m *Manager) SyncFromKite(src InstrumentSource) (int, error) {
	instruments, err := src.GetMFInstruments()
	if err != nil {
		return 0, errors.Wrap(err, "[schemes] - failed to fetch MF instruments")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	byISIN := make(map[string]string, len(m.schemes))
	for code, s := range m.schemes {
		if s.ISIN != "" {
			byISIN[s.ISIN] = code
		}
	}

	updated := 0
	for _, inst := range instruments {
		code, ok := byISIN[inst.Tradingsymbol]
		if !ok {
			continue
		}
		s := m.schemes[code]
		s.PurchaseAllowed = inst.PurchaseAllowed
		s.MinPurchase = decimal.NewFromFloat(inst.MinimumPurchaseAmount)
		s.LastNAV = decimal.NewFromFloat(inst.LastPrice)
		if s.Name == "" {
			s.Name = inst.Name
		}
		if s.AMC == "" {
			s.AMC = inst.AMC
		}
		m.schemes[code] = s
		updated++
	}
	m.logger.Info("synced scheme master from kite",
		zap.Int("instruments", len(instruments)),
		zap.Int("updated", updated),
	)
	return updated, nil
}

func parseFlag(s string) bool {
	switch strings.ToUpper(s) {
	case "Y", "YES", "TRUE", "1":
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

func parseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
