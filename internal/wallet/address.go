// Package wallet validates wallet identities and manages the wallet list file.
package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polyinsider/collector/internal/store"
)

// ParseAddress validates a 0x-prefixed 40-hex-digit address and returns it
// lowercased.
func ParseAddress(s string) (string, error) {
	addr := strings.TrimSpace(s)
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return "", &store.ValidationError{Field: "address", Value: s, Reason: "must start with 0x"}
	}
	if len(addr) != 2+2*common.AddressLength {
		return "", &store.ValidationError{Field: "address", Value: s, Reason: "must be 40 hex digits after 0x"}
	}
	if !common.IsHexAddress(addr) {
		return "", &store.ValidationError{Field: "address", Value: s, Reason: "not a hex address"}
	}
	return strings.ToLower(addr), nil
}

// ValidateName checks a wallet name usable as a directory name.
func ValidateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		return "", &store.ValidationError{Field: "wallet name", Value: name, Reason: "must not be empty"}
	case n == "." || n == "..":
		return "", &store.ValidationError{Field: "wallet name", Value: name, Reason: "reserved name"}
	case strings.ContainsAny(n, `,/\`):
		return "", &store.ValidationError{Field: "wallet name", Value: name, Reason: `must not contain ",", "/" or "\"`}
	case strings.HasPrefix(n, "#"):
		return "", &store.ValidationError{Field: "wallet name", Value: name, Reason: `must not start with "#"`}
	}
	return n, nil
}

// NewSession validates name and address and returns a session with the
// normalized address.
func NewSession(name, address string) (store.WalletSession, error) {
	n, err := ValidateName(name)
	if err != nil {
		return store.WalletSession{}, err
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return store.WalletSession{}, err
	}
	return store.WalletSession{Name: n, Address: addr}, nil
}
