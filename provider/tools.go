package provider

import "regexp"

var toolNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidToolName reports whether name may be forwarded as a CLI argument.
func ValidToolName(name string) bool {
	return toolNamePattern.MatchString(name)
}

// ValidateToolNames returns an *InvalidToolNameError naming every entry
// that fails ValidToolName.
func ValidateToolNames(names []string) error {
	var bad []string
	for _, n := range names {
		if !ValidToolName(n) {
			bad = append(bad, n)
		}
	}
	if len(bad) > 0 {
		return &InvalidToolNameError{Names: bad}
	}
	return nil
}

// FilterToolNames keeps only valid, de-duplicated names in input order.
func FilterToolNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !ValidToolName(n) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
