package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Locator resolves a CLI binary: an explicit override first, then known
// install locations, then PATH.
type Locator struct {
	// Override is a configured binary path. When set, it is the only
	// candidate.
	Override string
	// Binary is the executable name looked up on PATH.
	Binary string
	// Candidates are absolute or ~-prefixed install paths tried before PATH.
	Candidates []string

	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	home     func() (string, error)
}

// NewLocator returns a Locator for binary with the given install paths.
func NewLocator(override, binary string, candidates ...string) *Locator {
	return &Locator{Override: override, Binary: binary, Candidates: candidates}
}

// Locate returns the resolved path of the binary or ErrNotFound.
func (l *Locator) Locate() (string, error) {
	if l.Override != "" {
		path := l.expand(l.Override)
		if l.isExecutable(path) {
			return path, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, l.Override)
	}
	for _, c := range l.Candidates {
		path := l.expand(c)
		if l.isExecutable(path) {
			return path, nil
		}
	}
	lookPath := l.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(l.Binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s not in PATH", ErrNotFound, l.Binary)
	}
	return path, nil
}

// Found reports whether Locate succeeds.
func (l *Locator) Found() bool {
	_, err := l.Locate()
	return err == nil
}

func (l *Locator) expand(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home := l.home
	if home == nil {
		home = os.UserHomeDir
	}
	dir, err := home()
	if err != nil {
		return path
	}
	return filepath.Join(dir, strings.TrimPrefix(path, "~"))
}

func (l *Locator) isExecutable(path string) bool {
	stat := l.stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

const versionTimeout = 5 * time.Second

// Version runs `<binary> --version` and returns the first line of stdout,
// or "" when the probe fails. Stderr is discarded since Node based CLIs
// print deprecation warnings there.
func Version(ctx context.Context, binaryPath string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, binaryPath, "--version")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	first := strings.SplitN(strings.TrimSpace(out.String()), "\n", 2)[0]
	return strings.TrimSpace(first)
}
