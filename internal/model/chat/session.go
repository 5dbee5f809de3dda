package chat

// Transcript is the stored history of one session as exposed over HTTP.
type Transcript struct {
	SessionID string    `json:"sessionID"`
	Messages  []Message `json:"messages"`
}
