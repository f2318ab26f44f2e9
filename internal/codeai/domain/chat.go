package domain

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the generated text back to the caller.
type ChatResponse struct {
	Response string `json:"response"`
}
