// Package nickpolicy derives IRC nicknames from Chat display names.
//
// Cleaning follows RFC 1459's nickname character class directly, and a
// configured suffix is appended to a cleaned name to keep it distinct from
// a real IRC user picking the same nick.
package nickpolicy

import "strings"

// ServerNickLen is the maximum nickname length most IRC networks enforce.
const ServerNickLen = 16

// DefaultSuffix is appended to every shadow nickname unless a config value
// overrides it.
const DefaultSuffix = "-slack"

// Derive computes the IRC nickname for a Chat display name and a
// configured suffix, following the rule: replace '.' with '-', run the
// result through the IRC character-class cleaner, then truncate so that
// the cleaned name plus suffix fits within ServerNickLen characters.
func Derive(displayName, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	name := strings.ReplaceAll(displayName, ".", "-")
	name = clean(name)

	max := ServerNickLen - len(suffix)
	if max < 0 {
		max = 0
	}
	if len(name) > max {
		name = name[:max]
	}

	return name + suffix
}
