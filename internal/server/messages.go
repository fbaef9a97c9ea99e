package server

import (
	"encoding/json"

	"holocardserver/internal/engine"
)

// Client message types.
const (
	MsgJoinServer      = "join_server"
	MsgJoinMatchQueue  = "join_matchmaking_queue"
	MsgLeaveMatchQueue = "leave_matchmaking_queue"
	MsgLeaveGame       = "leave_game"
	MsgGameAction      = "game_action"
)

// Server message types.
const (
	MsgServerInfo = "server_info"
	MsgGameEvent  = "game_event"
	MsgError      = "error"
)

// Error ids sent to clients.
const (
	ErrInvalidMessage     = "invalid_message"
	ErrAlreadyInMatch     = "joinmatch_invalid_alreadyinmatch"
	ErrInvalidGameType    = "joinmatch_invalid_gametype"
	ErrInvalidDeck        = "joinmatch_invaliddeck"
	ErrNotInRoom          = "not_in_room"
	ErrInvalidGameMessage = "invalid_game_message"
)

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	MessageType string `json:"message_type"`

	// join_matchmaking_queue
	CustomGame bool           `json:"custom_game,omitempty"`
	QueueName  string         `json:"queue_name,omitempty"`
	GameType   string         `json:"game_type,omitempty"`
	OshiID     string         `json:"oshi_id,omitempty"`
	Deck       map[string]int `json:"deck,omitempty"`
	CheerDeck  map[string]int `json:"cheer_deck,omitempty"`

	// game_action
	ActionType string          `json:"action_type,omitempty"`
	ActionData json.RawMessage `json:"action_data,omitempty"`
}

// ServerInfo is broadcast on connect and whenever the lobby changes.
type ServerInfo struct {
	MessageType  string      `json:"message_type"`
	YourID       string      `json:"your_id"`
	PlayersCount int         `json:"players_count"`
	QueueInfo    []QueueInfo `json:"queue_info"`
}

// QueueInfo summarizes one matchmaking queue for the lobby.
type QueueInfo struct {
	QueueName    string `json:"queue_name"`
	GameType     string `json:"game_type"`
	PlayersCount int    `json:"players_count"`
}

// GameEventMessage wraps one engine event for a client.
type GameEventMessage struct {
	MessageType string       `json:"message_type"`
	Event       engine.Event `json:"event"`
}

// ErrorMessage reports a rejected client message.
type ErrorMessage struct {
	MessageType  string `json:"message_type"`
	ErrorID      string `json:"error_id"`
	ErrorMessage string `json:"error_message"`
}

func newError(id, msg string) ErrorMessage {
	return ErrorMessage{MessageType: MsgError, ErrorID: id, ErrorMessage: msg}
}
