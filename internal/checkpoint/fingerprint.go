package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintPrefix bounds how much text feeds the fingerprint. Edits
// past this point do not invalidate a completed section.
const fingerprintPrefix = 8000

// Fingerprint returns a short content hash of the section text: the
// first 4 bytes of the sha256 of the first 8000 characters, as 8 hex
// digits. It is embedded in artifact file names, so it must stay short
// and filesystem-safe.
func Fingerprint(text string) string {
	runes := []rune(text)
	if len(runes) > fingerprintPrefix {
		runes = runes[:fingerprintPrefix]
	}
	sum := sha256.Sum256([]byte(string(runes)))
	return hex.EncodeToString(sum[:4])
}

// CombinedFingerprint digests an ordered list of fingerprints into one.
// Used to detect whether the set of section summaries feeding a global
// synthesis has changed since the synthesis was produced.
func CombinedFingerprint(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:4])
}
