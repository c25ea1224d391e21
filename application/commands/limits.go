package commands

import "sync/atomic"

// Write-side validation limits. The values are process-wide and tunable
// at runtime; the dynamic configuration watcher pushes new values in
// through SetLimits whenever the config file changes.
var (
	maxModelsPerUser atomic.Int64
	maxNameLength    atomic.Int64
)

func init() {
	maxModelsPerUser.Store(100)
	maxNameLength.Store(200)
}

// SetLimits replaces the write-side validation limits. Non-positive
// values keep the current limit.
func SetLimits(modelsPerUser, nameLength int) {
	if modelsPerUser > 0 {
		maxModelsPerUser.Store(int64(modelsPerUser))
	}
	if nameLength > 0 {
		maxNameLength.Store(int64(nameLength))
	}
}

// MaxModelsPerUser returns the current cap on models owned by one user
func MaxModelsPerUser() int {
	return int(maxModelsPerUser.Load())
}

// MaxNameLength returns the current bound on user-supplied names
func MaxNameLength() int {
	return int(maxNameLength.Load())
}
