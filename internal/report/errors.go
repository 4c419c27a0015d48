package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/polyinsider/collector/internal/store"
	"github.com/polyinsider/collector/internal/wallet"
)

// DescribeError turns a pipeline error into a message for the operator.
func DescribeError(err error) string {
	var (
		ve    *store.ValidationError
		te    *store.TransportError
		fe    *store.FormatError
		empty *store.EmptyDataError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &te):
		if te.StatusCode != 0 {
			return fmt.Sprintf("activity API returned status %d, nothing was saved", te.StatusCode)
		}
		return fmt.Sprintf("activity API unreachable (%v), nothing was saved", te.Err)
	case errors.As(err, &fe):
		return "malformed dataset: " + fe.Error()
	case errors.As(err, &empty):
		return fmt.Sprintf("no Up/Down trades to plot in %s", empty.Path)
	case errors.Is(err, wallet.ErrWalletExists), errors.Is(err, wallet.ErrWalletNotFound):
		return err.Error()
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return err.Error()
}
