package capture

import (
	"errors"
	"strings"
)

// ErrUnknownPackage is returned when no label is known for a package.
var ErrUnknownPackage = errors.New("unknown package")

// Resolver supplies package metadata: a human-readable label, best-effort,
// and whether the package is a system application. Resolution failures must
// degrade gracefully — the record is stored without a label and the UI
// falls back to the package name.
type Resolver interface {
	AppName(pkg string) (string, error)
	IsSystemPackage(pkg string) bool
}

// StaticResolver resolves from a fixed label map and a list of system
// package prefixes. Entries ending in "." match as prefixes, the rest
// match exactly.
type StaticResolver struct {
	labels         map[string]string
	systemPackages []string
}

// NewStaticResolver copies the supplied tables into a StaticResolver.
func NewStaticResolver(labels map[string]string, systemPackages []string) *StaticResolver {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	return &StaticResolver{
		labels:         copied,
		systemPackages: append([]string(nil), systemPackages...),
	}
}

// AppName returns the configured label for pkg, or ErrUnknownPackage.
func (r *StaticResolver) AppName(pkg string) (string, error) {
	if label, ok := r.labels[pkg]; ok {
		return label, nil
	}
	return "", ErrUnknownPackage
}

// IsSystemPackage reports whether pkg matches any system package entry.
func (r *StaticResolver) IsSystemPackage(pkg string) bool {
	for _, entry := range r.systemPackages {
		if strings.HasSuffix(entry, ".") {
			if strings.HasPrefix(pkg, entry) {
				return true
			}
		} else if pkg == entry {
			return true
		}
	}
	return false
}
