package constant

// Shared log attribute and payload keys.
const (
	Error         = "error"
	ParticipantID = "participant_id"
	SessionID     = "session_id"
	Channel       = "channel"
)
