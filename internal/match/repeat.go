package match

// IsRepeat reports whether the candidate product name appears in the
// brand's recent posting window (most-recent-first). Exact-name match
// only; the window already reflects the configured repeat count.
func IsRepeat(productName string, recent []string) bool {
	for _, name := range recent {
		if name == productName {
			return true
		}
	}
	return false
}
