package wallet

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/polyinsider/collector/internal/atomicfile"
	"github.com/polyinsider/collector/internal/store"
)

// ErrWalletExists is returned by Add when the name is taken and overwrite
// was not requested.
var ErrWalletExists = errors.New("wallet already exists")

// ErrWalletNotFound is returned by Find for unknown names.
var ErrWalletNotFound = errors.New("wallet not found")

const fileHeader = `# Wallet list
# One wallet per line: name,address
# Example: whale,0x0000000000000000000000000000000000000000
# Lines starting with # are ignored.
`

// Registry is the wallet list file.
type Registry struct {
	path   string
	logger *slog.Logger
}

// NewRegistry creates a Registry backed by path.
func NewRegistry(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{path: path, logger: logger}
}

// Path returns the backing file.
func (r *Registry) Path() string {
	return r.path
}

// Load returns the wallets in file order, creating the file with a comment
// header when it does not exist. Malformed lines are logged and skipped.
func (r *Registry) Load() ([]store.WalletSession, error) {
	if err := r.ensureFile(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open wallet list: %w", err)
	}
	defer f.Close()

	var sessions []store.WalletSession
	seen := make(map[string]int)

	sc := bufio.NewScanner(f)
	for lineNum := 1; sc.Scan(); lineNum++ {
		name, addr, ok := splitLine(sc.Text())
		if !ok {
			continue
		}
		s, err := NewSession(name, addr)
		if err != nil {
			r.logger.Warn("wallet_line_invalid", "path", r.path, "line", lineNum, "error", err)
			continue
		}
		// later lines win, matching Add's overwrite
		if i, dup := seen[s.Name]; dup {
			sessions[i] = s
			continue
		}
		seen[s.Name] = len(sessions)
		sessions = append(sessions, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read wallet list: %w", err)
	}

	return sessions, nil
}

// Find returns the wallet named name.
func (r *Registry) Find(name string) (store.WalletSession, error) {
	sessions, err := r.Load()
	if err != nil {
		return store.WalletSession{}, err
	}
	for _, s := range sessions {
		if s.Name == name {
			return s, nil
		}
	}
	return store.WalletSession{}, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
}

// Add stores a wallet. An existing entry with the same name is replaced in
// place when overwrite is set; otherwise ErrWalletExists is returned.
func (r *Registry) Add(s store.WalletSession, overwrite bool) error {
	s, err := NewSession(s.Name, s.Address)
	if err != nil {
		return err
	}
	if err := r.ensureFile(); err != nil {
		return err
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read wallet list: %w", err)
	}

	entry := s.Name + "," + s.Address
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	out := make([]string, 0, len(lines)+1)
	replaced := false
	for _, line := range lines {
		name, _, ok := splitLine(line)
		if !ok || name != s.Name {
			out = append(out, line)
			continue
		}
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrWalletExists, s.Name)
		}
		if !replaced {
			out = append(out, entry)
			replaced = true
		}
	}
	if !replaced {
		out = append(out, entry)
	}

	err = atomicfile.Write(r.path, func(w io.Writer) error {
		_, err := io.WriteString(w, strings.Join(out, "\n")+"\n")
		return err
	})
	if err != nil {
		return fmt.Errorf("save wallet list: %w", err)
	}

	r.logger.Info("wallet_saved", "name", s.Name, "address", s.Address, "replaced", replaced)
	return nil
}

func (r *Registry) ensureFile() error {
	_, err := os.Stat(r.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat wallet list: %w", err)
	}

	err = atomicfile.Write(r.path, func(w io.Writer) error {
		_, err := io.WriteString(w, fileHeader)
		return err
	})
	if err != nil {
		return fmt.Errorf("create wallet list: %w", err)
	}
	r.logger.Info("wallet_list_created", "path", r.path)
	return nil
}

// splitLine parses "name,address" or "name address". Blank and comment
// lines report ok=false.
func splitLine(line string) (name, addr string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	if n, a, found := strings.Cut(line, ","); found {
		return strings.TrimSpace(n), strings.TrimSpace(a), true
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return line, "", true
	}
	return fields[0], fields[1], true
}
