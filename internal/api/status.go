package api

// Assessment lifecycle statuses. The active set is fixed; any status string
// outside the taxonomy displays as unknown but never blocks terminal
// detection, which checks for the two terminal values explicitly.
const (
	StatusQueued    = "queued"
	StatusCloning   = "cloning"
	StatusAnalyzing = "analyzing"
	StatusScanning  = "scanning"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

// ActiveStatuses is the exhaustive set of non-terminal states.
var ActiveStatuses = []string{StatusQueued, StatusCloning, StatusAnalyzing, StatusScanning}

func IsTerminal(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

func IsActive(status string) bool {
	for _, s := range ActiveStatuses {
		if status == s {
			return true
		}
	}
	return false
}
