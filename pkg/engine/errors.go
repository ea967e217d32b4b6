package engine

import "errors"

var (
	// ErrMissionNotFound is returned by Start when the mission ID
	// resolves to no definition.
	ErrMissionNotFound = errors.New("mission not found")

	// ErrMissionAlreadyActive is returned by Start while a session
	// is in progress. The active mission must be completed or
	// abandoned first.
	ErrMissionAlreadyActive = errors.New("a mission is already active")

	// ErrNoActiveSession is returned by step operations when no
	// mission is in progress.
	ErrNoActiveSession = errors.New("no active mission session")
)
