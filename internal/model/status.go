package model

// Deployment status vocabulary.
const (
	StatusPending   = "PENDING"
	StatusBuilding  = "BUILDING"
	StatusDeploying = "DEPLOYING"
	StatusSuccess   = "SUCCESS"
	StatusFailed    = "FAILED"
)

// IsTerminalStatus reports whether a deployment in the given status has finished.
func IsTerminalStatus(status string) bool {
	return status == StatusSuccess || status == StatusFailed
}

// ValidTransition reports whether an attempt may move from one status to
// another. FAILED -> BUILDING is only taken by automated recovery.
func ValidTransition(from, to string) bool {
	if from == to {
		return !IsTerminalStatus(from)
	}
	switch from {
	case StatusPending:
		return to == StatusBuilding || to == StatusDeploying || IsTerminalStatus(to)
	case StatusBuilding:
		return to == StatusDeploying || IsTerminalStatus(to)
	case StatusDeploying:
		return IsTerminalStatus(to)
	case StatusFailed:
		return to == StatusBuilding
	}
	return false
}
