package realtime

// SSE event names pushed to participant and admin streams.
const (
	EventPhaseChanged      = "phase-changed"
	EventJoinableChanged   = "joinable-changed"
	EventProgressUpdate    = "progress-update"
	EventHintRevealed      = "hint-revealed"
	EventParticipantJoined = "participant-joined"
	EventTeamAssigned      = "team-assigned"
	EventGameEnded         = "game-ended"
	EventErrorNotice       = "error-notice"
)
