package entity

// HTTP DTOs for the chat API.

type ChatRequest struct {
	Message   string        `json:"message"`
	SessionID string        `json:"session_id"`
	Context   *QueryContext `json:"context,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ChatResponse struct {
	Response    string       `json:"response"`
	Suggestions []Suggestion `json:"suggestions"`
	Intent      string       `json:"intent"`
	SessionID   string       `json:"session_id"`
	Sources     []string     `json:"sources"`
	Cached      bool         `json:"cached,omitempty"`
}
