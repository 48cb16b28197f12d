package taifex

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"txoflow/config"
	"txoflow/logger"
	"txoflow/models"
)

// snapshotFileRegexp matches daily snapshot exports named TXO_YYYYMMDD.csv.
var snapshotFileRegexp = regexp.MustCompile(`^TXO_(\d{8})\.csv$`)

// SnapshotReader loads daily TXO market snapshots from a local directory.
// One file holds one trading day's full option chain. Files come from the
// exchange's daily report, so headers may be the Chinese originals or an
// already-translated export; both are accepted.
type SnapshotReader struct {
	config *config.Config
	log    *logger.Log
}

func NewSnapshotReader(cfg *config.Config) *SnapshotReader {
	return &SnapshotReader{
		config: cfg,
		log:    logger.GetLogger(),
	}
}

// LoadLatest reads up to days snapshot files, newest first. It returns an
// error only when not a single usable snapshot exists; individual bad rows
// or files are logged and skipped.
func (r *SnapshotReader) LoadLatest(days int) ([]models.DailySnapshot, error) {
	if days < 1 {
		days = 1
	}

	dir := r.config.Reader.SnapshotDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	type candidate struct {
		path string
		date time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := snapshotFileRegexp.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		date, err := time.ParseInLocation("20060102", m[1], time.UTC)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: filepath.Join(dir, entry.Name()), date: date})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].date.After(candidates[j].date) })

	log := r.log.WithComponent("taifex_reader")

	snapshots := make([]models.DailySnapshot, 0, days)
	for _, c := range candidates {
		if len(snapshots) >= days {
			break
		}
		snap, err := r.loadFile(c.path, c.date)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"file": c.path}).Warn("skipping unreadable snapshot file")
			continue
		}
		snapshots = append(snapshots, snap)
		logger.IncrementSnapshotLoad()
		log.WithFields(logger.Fields{
			"file": c.path,
			"date": c.date.Format("2006-01-02"),
			"rows": len(snap.Rows),
		}).Info("loaded snapshot")
	}

	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no usable snapshot files in %s", dir)
	}
	return snapshots, nil
}

func (r *SnapshotReader) loadFile(path string, date time.Time) (models.DailySnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.DailySnapshot{}, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return models.DailySnapshot{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) < 2 {
		return models.DailySnapshot{}, fmt.Errorf("snapshot file has no data rows")
	}

	cols, err := mapColumns(records[0])
	if err != nil {
		return models.DailySnapshot{}, err
	}

	log := r.log.WithComponent("taifex_reader").WithFields(logger.Fields{"file": path})

	snap := models.DailySnapshot{AsOfDate: date, Rows: make([]models.OptionQuoteRow, 0, len(records)-1)}
	dropped := 0
	for _, record := range records[1:] {
		row, ok := parseRow(record, cols)
		if !ok {
			dropped++
			continue
		}
		snap.Rows = append(snap.Rows, row)
	}
	if dropped > 0 {
		log.WithFields(logger.Fields{"dropped_rows": dropped}).Warn("dropped unparseable snapshot rows")
	}
	if len(snap.Rows) == 0 {
		return models.DailySnapshot{}, fmt.Errorf("snapshot file has no parseable rows")
	}
	return snap, nil
}

// columnIndexes locates the five required columns in a header row.
type columnIndexes struct {
	contract, strike, typ, price, oi int
}

// mapColumns resolves header cells by substring so the loader accepts both
// the exchange's Chinese headers and translated exports. The settlement
// price is preferred over the close when both are present, and a bare 契約
// header only counts as the contract column when no expiry-month column
// exists, matching the published daily report.
func mapColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{contract: -1, strike: -1, typ: -1, price: -1, oi: -1}
	bareContract := -1
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case strings.Contains(name, "未沖銷") || strings.Contains(name, "open_interest") || name == "oi":
			cols.oi = i
		case strings.Contains(name, "到期月份") || strings.Contains(name, "週別") || strings.Contains(name, "contract") || strings.Contains(name, "month"):
			if cols.contract == -1 {
				cols.contract = i
			}
		case name == "契約":
			bareContract = i
		case strings.Contains(name, "履約價") || strings.Contains(name, "strike"):
			cols.strike = i
		case strings.Contains(name, "買賣權") || name == "type":
			cols.typ = i
		case strings.Contains(name, "結算價") || strings.Contains(name, "settlement_price"):
			cols.price = i
		case strings.Contains(name, "收盤價") || strings.Contains(name, "price") || strings.Contains(name, "close"):
			if cols.price == -1 {
				cols.price = i
			}
		}
	}
	if cols.contract == -1 {
		cols.contract = bareContract
	}
	if cols.contract == -1 || cols.strike == -1 || cols.typ == -1 || cols.price == -1 || cols.oi == -1 {
		return cols, fmt.Errorf("snapshot header missing required columns: %v", header)
	}
	return cols, nil
}

func parseRow(record []string, cols columnIndexes) (models.OptionQuoteRow, bool) {
	max := cols.contract
	for _, idx := range []int{cols.strike, cols.typ, cols.price, cols.oi} {
		if idx > max {
			max = idx
		}
	}
	if len(record) <= max {
		return models.OptionQuoteRow{}, false
	}

	typ, ok := parseOptionType(record[cols.typ])
	if !ok {
		return models.OptionQuoteRow{}, false
	}

	strike, err := parseNumber(record[cols.strike])
	if err != nil || strike <= 0 {
		return models.OptionQuoteRow{}, false
	}

	// Untraded rows report "-"; treat missing OI or price as zero rather
	// than dropping the row, so the strike still shows in OI views.
	oi, err := parseNumber(record[cols.oi])
	if err != nil {
		oi = 0
	}
	price, err := parseNumber(record[cols.price])
	if err != nil {
		price = 0
	}

	return models.OptionQuoteRow{
		ContractCode: strings.ToUpper(strings.TrimSpace(record[cols.contract])),
		Strike:       strike,
		Type:         typ,
		OpenInterest: oi,
		Price:        price,
	}, true
}

func parseOptionType(raw string) (models.OptionType, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "買") || strings.Contains(s, "call"):
		return models.Call, true
	case strings.Contains(s, "賣") || strings.Contains(s, "put"):
		return models.Put, true
	}
	return "", false
}

// parseNumber handles the report's thousand separators and dash
// placeholders for untraded fields.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" || s == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
