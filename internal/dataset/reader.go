package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/polyinsider/collector/internal/store"
)

var (
	errMissingColumn = errors.New("missing required column")
	errBadNumber     = errors.New("not a number")
	errNegativeSize  = errors.New("negative size")
	errEmptyValue    = errors.New("empty value")
)

// ReadFile loads a dataset from disk.
func ReadFile(path string) ([]store.ActivityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read parses a dataset. Columns are located by header name so extra or
// reordered columns are tolerated. name is used in errors and, stripped of
// directory and extension, as the market slug when the slug column is
// absent or empty.
func Read(r io.Reader, name string) ([]store.ActivityRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &store.FormatError{Path: name, Err: errors.New("empty file")}
	}
	if err != nil {
		return nil, csvError(name, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &store.FormatError{Path: name, Column: col, Err: errMissingColumn}
		}
	}

	fallbackSlug := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	var records []store.ActivityRecord
	for rowNum := 2; ; rowNum++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(name, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		p := rowParser{path: name, row: rowNum, cells: row, idx: idx}
		rec := store.ActivityRecord{
			Timestamp:       p.requiredInt(ColTimestamp),
			Type:            store.ParseActivityType(p.str(ColType)),
			Outcome:         store.ParseOutcome(p.str(ColOutcome)),
			Size:            p.amount(ColSize),
			UsdcSize:        p.amount(ColUsdcSize),
			Price:           p.amount(ColPrice),
			TransactionHash: p.str(ColTransactionHash),
			Title:           p.str(ColTitle),
			Side:            p.str(ColSide),
			MarketSlug:      p.str(ColSlug),
			ConditionID:     p.str(ColConditionID),
			Asset:           p.str(ColAsset),
			OutcomeIndex:    int(p.optionalInt(ColOutcomeIndex)),
			EventSlug:       p.str(ColEventSlug),
			WalletAddress:   p.str(ColWalletAddress),
		}
		if p.err != nil {
			return nil, p.err
		}
		if rec.Size.IsNegative() {
			return nil, &store.FormatError{Path: name, Row: rowNum, Column: ColSize, Err: errNegativeSize}
		}
		if rec.MarketSlug == "" {
			rec.MarketSlug = fallbackSlug
		}
		records = append(records, rec)
	}

	return records, nil
}

// rowParser extracts typed cells, remembering the first failure.
type rowParser struct {
	path  string
	row   int
	cells []string
	idx   map[string]int
	err   error
}

func (p *rowParser) str(col string) string {
	i, ok := p.idx[col]
	if !ok || i >= len(p.cells) {
		return ""
	}
	return strings.TrimSpace(p.cells[i])
}

func (p *rowParser) fail(col string, err error) {
	if p.err == nil {
		p.err = &store.FormatError{Path: p.path, Row: p.row, Column: col, Err: err}
	}
}

func (p *rowParser) requiredInt(col string) int64 {
	s := p.str(col)
	if s == "" {
		p.fail(col, errEmptyValue)
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.fail(col, fmt.Errorf("%w: %q", errBadNumber, s))
	}
	return v
}

func (p *rowParser) optionalInt(col string) int64 {
	s := p.str(col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.fail(col, fmt.Errorf("%w: %q", errBadNumber, s))
	}
	return v
}

// amount reads a decimal cell; an empty cell is zero.
func (p *rowParser) amount(col string) decimal.Decimal {
	s := p.str(col)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.fail(col, fmt.Errorf("%w: %q", errBadNumber, s))
		return decimal.Zero
	}
	return d
}

func csvError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &store.FormatError{Path: name, Row: pe.Line, Err: pe.Err}
	}
	return &store.FormatError{Path: name, Err: err}
}
