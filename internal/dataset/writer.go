package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/polyinsider/collector/internal/atomicfile"
	"github.com/polyinsider/collector/internal/store"
)

// Writer persists market groups under a data directory.
type Writer struct {
	dataDir string
	logger  *slog.Logger
}

// NewWriter creates a Writer rooted at dataDir.
func NewWriter(dataDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dataDir: dataDir, logger: logger}
}

// Path returns where the dataset for walletName and slug lives.
func (w *Writer) Path(walletName, slug string) string {
	return Path(w.dataDir, walletName, slug)
}

// Path returns {dataDir}/{walletName}/{slug}.csv.
func Path(dataDir, walletName, slug string) string {
	return filepath.Join(dataDir, SafeName(walletName), SafeName(slug)+Ext)
}

// Write replaces the dataset for the group's market, returning its path.
// The previous file, if any, stays intact until the new one is complete.
func (w *Writer) Write(session store.WalletSession, group store.MarketGroup) (string, error) {
	path := w.Path(session.Name, group.Slug)

	err := atomicfile.Write(path, func(out io.Writer) error {
		return Encode(out, session, group.Records)
	})
	if err != nil {
		return "", fmt.Errorf("write dataset %s: %w", path, err)
	}

	w.logger.Info("dataset_written",
		"wallet", session.Name,
		"slug", group.Slug,
		"records", len(group.Records),
		"path", path,
	)
	return path, nil
}

// Encode writes the header and one row per record.
func Encode(out io.Writer, session store.WalletSession, records []store.ActivityRecord) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Columns); err != nil {
		return err
	}

	row := make([]string, len(Columns))
	for _, r := range records {
		row[0] = strconv.FormatInt(r.Timestamp, 10)
		row[1] = FormatDatetime(r.Timestamp)
		row[2] = string(r.Type)
		row[3] = string(r.Outcome)
		row[4] = r.Size.String()
		row[5] = r.UsdcSize.String()
		row[6] = r.Price.String()
		row[7] = r.TransactionHash
		row[8] = r.Title
		row[9] = r.Side
		row[10] = r.MarketSlug
		row[11] = r.ConditionID
		row[12] = r.Asset
		row[13] = strconv.Itoa(r.OutcomeIndex)
		row[14] = r.EventSlug
		row[15] = session.Name
		row[16] = r.WalletAddress
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
