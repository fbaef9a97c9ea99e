package engine

import (
	"holocardserver/internal/state"
)

// EventType names are part of the wire protocol and stable.
type EventType string

const (
	EventGameStart        EventType = "GameStart"
	EventMulligan         EventType = "Mulligan"
	EventInitialPlacement EventType = "InitialPlacement"
	EventPlacementReveal  EventType = "PlacementReveal"

	EventEndTurn           EventType = "EndTurn"
	EventStartTurn         EventType = "StartTurn"
	EventResetStepActivate EventType = "ResetStepActivate"
	EventResetStepCollab   EventType = "ResetStepCollab"
	EventDraw              EventType = "Draw"
	EventCheerStep         EventType = "CheerStep"

	EventMoveCard         EventType = "MoveCard"
	EventMoveAttachedCard EventType = "MoveAttachedCard"
	EventPlaySupportCard  EventType = "PlaySupportCard"
	EventPlaceHolomem     EventType = "PlaceHolomem"
	EventBloom            EventType = "Bloom"
	EventCollab           EventType = "Collab"
	EventBatonPass        EventType = "BatonPass"

	EventBoostStat           EventType = "BoostStat"
	EventPerformArt          EventType = "PerformArt"
	EventDamageDealt         EventType = "DamageDealt"
	EventDownedHolomemBefore EventType = "DownedHolomem_Before"
	EventDownedHolomem       EventType = "DownedHolomem"
	EventGameOver            EventType = "GameOver"
	EventRollDie             EventType = "RollDie"
	EventOshiSkillActivation EventType = "OshiSkillActivation"
	EventGameError           EventType = "GameError"

	EventDecisionMulligan         EventType = "Decision_Mulligan"
	EventDecisionInitialPlacement EventType = "Decision_InitialPlacement"
	EventDecisionMainStep         EventType = "Decision_MainStep"
	EventDecisionPerformanceStep  EventType = "Decision_PerformanceStep"
	EventDecisionSendCheer        EventType = "Decision_SendCheer"
	EventDecisionChooseCards      EventType = "Decision_ChooseCards"
	EventDecisionChooseHolomem    EventType = "Decision_ChooseHolomemForEffect"
	EventDecisionSwapToCenter     EventType = "Decision_SwapHolomemToCenter"
	EventDecisionChoice           EventType = "Decision_Choice"
)

// Event is one record in the match log, already rendered for a single
// recipient (EventPlayerID). Each logical emission appends one copy per
// player, in player order, with hidden-zone card identities masked per
// recipient.
type Event struct {
	EventPlayerID string         `json:"event_player_id"`
	Type          EventType      `json:"event_type"`
	Payload       map[string]any `json:"payload"`
}

// emit appends one copy of the event per player with an identical payload.
func (e *Engine) emit(typ EventType, payload map[string]any) {
	for _, p := range e.players {
		e.events = append(e.events, Event{EventPlayerID: p.ID, Type: typ, Payload: payload})
	}
}

// emitEach appends per-player copies built by render, for payloads whose
// shape itself depends on the viewer (e.g. the initial hand).
func (e *Engine) emitEach(typ EventType, render func(viewer *state.Player) map[string]any) {
	for _, p := range e.players {
		e.events = append(e.events, Event{EventPlayerID: p.ID, Type: typ, Payload: render(p)})
	}
}

// emitTo appends a single-recipient event (action rejections).
func (e *Engine) emitTo(playerID string, typ EventType, payload map[string]any) {
	e.events = append(e.events, Event{EventPlayerID: playerID, Type: typ, Payload: payload})
}

// GrabEventsFor returns the new events addressed to playerID since that
// observer's previous call. Observers advance independently.
func (e *Engine) GrabEventsFor(playerID string) []Event {
	start := e.observers[playerID]
	e.observers[playerID] = len(e.events)
	var out []Event
	for _, ev := range e.events[start:] {
		if ev.EventPlayerID == playerID {
			out = append(out, ev)
		}
	}
	return out
}

// ReplayEventsFor returns the player's entire event history and moves
// their observer cursor to the end. Used when a client reconnects.
func (e *Engine) ReplayEventsFor(playerID string) []Event {
	e.observers[playerID] = len(e.events)
	var out []Event
	for _, ev := range e.events {
		if ev.EventPlayerID == playerID {
			out = append(out, ev)
		}
	}
	return out
}
