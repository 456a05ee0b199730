package session

import "time"

// User-facing notice texts.
const (
	MsgAlreadyCreating  = "You are already creating a session. Please wait for it to complete."
	MsgCreating         = "Creating new session... Please wait."
	MsgCreated          = "Session created successfully!"
	MsgCreateFailed     = "Failed to create session: %s"
	MsgAdded            = "Added %d problems to sessions."
	MsgFoundIncomplete  = "Found incomplete sessions. Syncing to complete..."
	MsgSyncFailed       = "Failed to sync sessions: %s"
	MsgLeaveWhileActive = "Session creation is in progress. Are you sure you want to leave?"
)

const (
	creatingDuration = 6 * time.Second
	createdDuration  = 6 * time.Second
	addedDuration    = 5 * time.Second
)
