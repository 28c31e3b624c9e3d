package utils

// Truncate shortens s to at most max characters, appending an ellipsis when
// anything was cut. Used to bound prompt payload sizes.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
