package gateway

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// WorkspacePolicy decides which directories a turn may run in.
type WorkspacePolicy interface {
	// Resolve returns the canonical form of dir or an error when the
	// directory is missing or not permitted.
	Resolve(dir string) (string, error)
}

// RootsPolicy permits directories inside a set of allow-listed roots. The
// roots can be swapped while requests are in flight.
type RootsPolicy struct {
	roots atomic.Pointer[[]string]
}

// NewRootsPolicy returns a policy over roots.
func NewRootsPolicy(roots []string) *RootsPolicy {
	p := &RootsPolicy{}
	p.SetRoots(roots)
	return p
}

// SetRoots replaces the allow-list. Roots are made absolute and symlinks
// resolved where they exist.
func (p *RootsPolicy) SetRoots(roots []string) {
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		clean = append(clean, abs)
	}
	p.roots.Store(&clean)
}

// Roots returns the current allow-list.
func (p *RootsPolicy) Roots() []string {
	if r := p.roots.Load(); r != nil {
		return append([]string(nil), (*r)...)
	}
	return nil
}

var (
	errNotAbsolute    = errors.New("must be an absolute path")
	errNotExist       = errors.New("does not exist")
	errNotDirectory   = errors.New("is not a directory")
	errOutsideAllowed = errors.New("is outside the allowed workspace roots")
)

// Resolve implements WorkspacePolicy.
func (p *RootsPolicy) Resolve(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		return "", errNotAbsolute
	}
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", errNotExist
	}
	info, err := os.Stat(real)
	if err != nil {
		return "", errNotExist
	}
	if !info.IsDir() {
		return "", errNotDirectory
	}
	for _, root := range p.Roots() {
		if within(root, real) {
			return real, nil
		}
	}
	return "", errOutsideAllowed
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
