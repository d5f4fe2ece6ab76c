package api

import (
	"github.com/vinylgrove/companion/domain/conversation"
	"github.com/vinylgrove/companion/domain/game"
	"github.com/vinylgrove/companion/usecase"
)

// ChatRequest is the payload for submitting a user message.
type ChatRequest struct {
	Content string `json:"content"`
}

// FeedRequest is the payload for feeding the character an item.
type FeedRequest struct {
	Item string `json:"item"`
}

// SelectRequest is the payload for selecting a character.
type SelectRequest struct {
	ID string `json:"id"`
}

// MoveRequest is the payload for an optimistic game move.
type MoveRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MessagesResponse carries the committed conversation.
type MessagesResponse struct {
	Messages []conversation.Message `json:"messages"`
}

// StateResponse is the combined application state for the UI.
type StateResponse struct {
	Companion  usecase.CompanionView `json:"companion"`
	Game       game.View             `json:"game"`
	Processing bool                  `json:"processing"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
