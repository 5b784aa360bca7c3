package api

// GenerateRequest is the body of POST /v1/generate. Message is a pointer so
// an explicit empty string can be told apart from a missing field.
type GenerateRequest struct {
	Message *string `json:"message"`
	Stream  bool    `json:"stream,omitempty"`
}

type GenerateResponse struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Created   int64  `json:"created"`
	Model     string `json:"model"`
	Text      string `json:"text"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Stream events are sent as SSE data payloads: one TokenEvent per token,
// then either a DoneEvent or an ErrorEvent, then "[DONE]".
type TokenEvent struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type DoneEvent struct {
	ID              string `json:"id"`
	Done            bool   `json:"done"`
	Tokens          int    `json:"tokens"`
	ElapsedMS       int64  `json:"elapsed_ms"`
	TokensPerSecond int    `json:"tokens_per_second"`
}

type ErrorEvent struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Model   string `json:"model"`
	Device  string `json:"device"`
	Backend string `json:"backend"`
	Version string `json:"version"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
