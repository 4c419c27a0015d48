// Package dataset persists per-market activity as CSV files and reads them back.
//
// Layout: {dataDir}/{walletName}/{marketSlug}.csv, one header row followed by
// one row per record in ascending timestamp order.
package dataset

import (
	"strings"
	"time"
)

// Column names in file order.
const (
	ColTimestamp       = "timestamp"
	ColDatetime        = "datetime"
	ColType            = "type"
	ColOutcome         = "outcome"
	ColSize            = "size"
	ColUsdcSize        = "usdcSize"
	ColPrice           = "price"
	ColTransactionHash = "transactionHash"
	ColTitle           = "title"
	ColSide            = "side"
	ColSlug            = "slug"
	ColConditionID     = "conditionId"
	ColAsset           = "asset"
	ColOutcomeIndex    = "outcomeIndex"
	ColEventSlug       = "eventSlug"
	ColWalletName      = "walletName"
	ColWalletAddress   = "walletAddress"
)

// Columns is the header written to every dataset.
var Columns = []string{
	ColTimestamp,
	ColDatetime,
	ColType,
	ColOutcome,
	ColSize,
	ColUsdcSize,
	ColPrice,
	ColTransactionHash,
	ColTitle,
	ColSide,
	ColSlug,
	ColConditionID,
	ColAsset,
	ColOutcomeIndex,
	ColEventSlug,
	ColWalletName,
	ColWalletAddress,
}

// RequiredColumns must be present for a file to be readable.
var RequiredColumns = []string{
	ColTimestamp,
	ColType,
	ColOutcome,
	ColSize,
	ColUsdcSize,
	ColPrice,
	ColTransactionHash,
}

// DatetimeLayout renders timestamps as ISO-8601 UTC.
const DatetimeLayout = "2006-01-02T15:04:05Z"

// FormatDatetime renders unix seconds with DatetimeLayout.
func FormatDatetime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DatetimeLayout)
}

// Ext is the dataset file extension.
const Ext = ".csv"

// SafeName maps a wallet name or slug to a single path element that cannot
// escape its directory. Datasets and charts share it so one slug names the
// same file stem under both roots.
func SafeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
