// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

// =============================================================================
// FUNCTION MODES
// =============================================================================

// Function selects the assistant mode for a chat request. The backend keeps
// separate conversation memory per user and per function.
type Function string

const (
	FunctionGeneral   Function = "general"
	FunctionPlay      Function = "play"
	FunctionGameGuide Function = "game_guide"
	FunctionDocQA     Function = "doc_qa"
	FunctionGameWiki  Function = "game_wiki"
)

// String returns the wire name of the function mode.
func (f Function) String() string {
	return string(f)
}

// Valid reports whether f is one of the known function modes.
func (f Function) Valid() bool {
	switch f {
	case FunctionGeneral, FunctionPlay, FunctionGameGuide, FunctionDocQA, FunctionGameWiki:
		return true
	}
	return false
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// HistoryTurn is one prior exchange turn forwarded to the backend so it can
// rebuild conversation context server side.
type HistoryTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Game describes one entry of the user's game collection. The backend folds
// the collection into the prompt for recommendation-aware answers; the
// fields mirror what the service expects and are forwarded verbatim.
type Game struct {
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	Platform   string   `json:"platform,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	PlayStatus string   `json:"playStatus,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// ChatRequest is the body for both the streaming and non-streaming chat
// endpoints. A request is immutable once issued; the client never mutates
// it after handing it to the transport.
type ChatRequest struct {
	Message        string        `json:"message"`
	Function       Function      `json:"function"`
	UserID         string        `json:"user_id"`
	ChatHistory    []HistoryTurn `json:"chat_history"`
	GameCollection []Game        `json:"game_collection"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is the non-streaming completion response.
type ChatResponse struct {
	Response  string `json:"response"`
	MessageID string `json:"message_id,omitempty"`
}

// streamEvent is one decoded SSE payload. Exactly one of the fields is set
// per event; the terminal "[DONE]" sentinel never reaches this type.
type streamEvent struct {
	Content string `json:"content"`
	Err     string `json:"error"`
}

// UploadResult is the response of the document upload endpoint.
type UploadResult struct {
	Success       bool   `json:"success"`
	Filename      string `json:"filename,omitempty"`
	ChunksCreated int    `json:"chunks_created,omitempty"`
	Message       string `json:"message,omitempty"`
}

// MemoryResult is the response of the memory clear endpoints.
type MemoryResult struct {
	Message string `json:"message"`
}

// AuthResult is the response of the login and register endpoints.
type AuthResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// DeltaFunc receives paced response text, one character per invocation, in
// strict arrival order. It is called from the pacing goroutine; callers
// that touch shared state must synchronize.
type DeltaFunc func(delta string)
