package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WalletDir is a wallet folder holding datasets.
type WalletDir struct {
	Name    string
	Markets int
}

// MarketFile is one dataset on disk.
type MarketFile struct {
	Slug    string
	Path    string
	Records int
}

// ListWallets returns the wallet folders under dataDir, sorted by name.
// A missing dataDir yields an empty list.
func ListWallets(dataDir string) ([]WalletDir, error) {
	entries, err := os.ReadDir(dataDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	var wallets []WalletDir
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		n, err := countDatasets(filepath.Join(dataDir, e.Name()))
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, WalletDir{Name: e.Name(), Markets: n})
	}

	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Name < wallets[j].Name })
	return wallets, nil
}

// ListMarkets returns the datasets of one wallet with their record counts,
// sorted by slug.
func ListMarkets(dataDir, walletName string) ([]MarketFile, error) {
	dir := filepath.Join(dataDir, SafeName(walletName))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}

	var markets []MarketFile
	for _, e := range entries {
		if !isDataset(e) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		n, err := countRows(path)
		if err != nil {
			return nil, err
		}
		markets = append(markets, MarketFile{
			Slug:    strings.TrimSuffix(e.Name(), Ext),
			Path:    path,
			Records: n,
		})
	}

	sort.Slice(markets, func(i, j int) bool { return markets[i].Slug < markets[j].Slug })
	return markets, nil
}

func isDataset(e fs.DirEntry) bool {
	name := e.Name()
	return !e.IsDir() && !strings.HasPrefix(name, ".") && strings.HasSuffix(name, Ext)
}

func countDatasets(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if isDataset(e) {
			n++
		}
	}
	return n, nil
}

// countRows counts data rows, excluding the header.
func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	n := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, csvError(path, err)
		}
		n++
	}
	if n > 0 {
		n--
	}
	return n, nil
}
