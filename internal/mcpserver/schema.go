package mcpserver

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultMatchLimit
	}
	if limit > maxMatchLimit {
		return maxMatchLimit
	}
	return limit
}
