package engine

import (
	"testing"

	"holocardserver/internal/cards"
	"holocardserver/internal/state"
)

// Test games run on a fixed seed so the whole event log is reproducible.
// Scenario state beyond the scripted opening is set up by direct zone
// surgery, then exercised through the public action API.

func loadTestDB(t *testing.T) *cards.Database {
	t.Helper()
	db, err := cards.Load("../../decks/card_definitions.json")
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return db
}

func standardDeck() DeckList {
	return DeckList{
		OshiID: "hBP01-002",
		Deck: map[string]int{
			"hSD01-003": 4,
			"hSD01-004": 4,
			"hSD01-005": 4,
			"hSD01-006": 4,
			"hSD01-008": 1,
			"hSD01-009": 4,
			"hSD01-011": 1,
			"hBP01-010": 4,
			"hBP01-106": 4,
			"hBP01-107": 4,
			"hBP01-110": 4,
			"hBP01-116": 4,
			"hBP02-020": 4,
			"hBP02-029": 4,
		},
		CheerDeck: map[string]int{
			"hY01-001": 10,
			"hY02-001": 4,
			"hY03-001": 3,
			"hY04-001": 3,
		},
	}
}

type testGame struct {
	t *testing.T
	e *Engine
	// active is the starting player, other the second, fixed after setup.
	active string
	other  string
}

// newTestGame builds a match, declines all mulligans, places debuts and
// plays out the opening cheer so the starting player sits at their first
// main step.
func newTestGame(t *testing.T, seed int64) *testGame {
	t.Helper()
	db := loadTestDB(t)
	e, err := NewEngine(db, state.NewSeeded(seed),
		[2]string{"player1", "player2"},
		[2]DeckList{standardDeck(), standardDeck()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.Begin()
	g := &testGame{t: t, e: e}

	for e.decision != nil && e.decision.typ == EventDecisionMulligan {
		e.HandleAction(e.decision.playerID, ActionMulligan, map[string]any{"do_mulligan": false})
	}
	for e.decision != nil && e.decision.typ == EventDecisionInitialPlacement {
		pid := e.decision.playerID
		p := e.Player(pid)
		var center string
		var backstage []string
		for _, id := range p.Hand {
			switch e.Instance(id).Def.CardType {
			case cards.TypeHolomemDebut:
				if center == "" {
					center = id
				} else if len(backstage) < maxBackstage {
					backstage = append(backstage, id)
				}
			}
		}
		e.HandleAction(pid, ActionInitialPlacement, map[string]any{
			"center_id":     center,
			"backstage_ids": backstage,
		})
	}
	g.active = e.ActivePlayerID()
	g.other = g.opponentID(g.active)
	g.placePendingCheer()
	if e.decision == nil || e.decision.typ != EventDecisionMainStep {
		t.Fatalf("setup did not reach main step, decision=%v", e.decision)
	}
	return g
}

func (g *testGame) opponentID(id string) string {
	for _, pid := range g.e.PlayerIDs() {
		if pid != id {
			return pid
		}
	}
	g.t.Fatalf("unknown player %s", id)
	return ""
}

// placePendingCheer answers an outstanding cheer-step decision by
// putting the revealed cheer on the first offered holomem.
func (g *testGame) placePendingCheer() {
	g.t.Helper()
	d := g.e.decision
	if d == nil || d.typ != EventCheerStep {
		return
	}
	ev := g.lastEventFor(d.playerID, EventCheerStep)
	refs := ev.Payload["cheer_to_place"].([]map[string]any)
	cheerID := refs[0]["game_card_id"].(string)
	options := ev.Payload["options"].([]string)
	g.e.HandleAction(d.playerID, ActionEffectMoveCheer, map[string]any{
		"placements": map[string]string{cheerID: options[0]},
	})
}

// endCurrentTurn resolves any pending cheer step and ends the active
// player's turn from the main step.
func (g *testGame) endCurrentTurn() {
	g.t.Helper()
	g.placePendingCheer()
	d := g.e.decision
	if d == nil || d.typ != EventDecisionMainStep {
		g.t.Fatalf("expected main step, decision=%v", d)
	}
	g.e.HandleAction(d.playerID, ActionMainStepEndTurn, nil)
}

// advanceToTurn3 plays two empty turns so the starting player has a main
// step with performance unlocked.
func (g *testGame) advanceToTurn3() {
	g.t.Helper()
	g.endCurrentTurn()
	g.endCurrentTurn()
	g.placePendingCheer()
	if g.e.ActivePlayerID() != g.active || g.e.turn != 3 {
		g.t.Fatalf("expected %s on turn 3, got %s on turn %d", g.active, g.e.ActivePlayerID(), g.e.turn)
	}
}

func (g *testGame) mustMainStep(playerID string) {
	g.t.Helper()
	d := g.e.decision
	if d == nil || d.typ != EventDecisionMainStep || d.playerID != playerID {
		g.t.Fatalf("expected main step for %s, decision=%v", playerID, d)
	}
}

func (g *testGame) mustDecision(typ EventType, playerID string) {
	g.t.Helper()
	d := g.e.decision
	if d == nil || d.typ != typ || d.playerID != playerID {
		g.t.Fatalf("expected %s decision for %s, got %v", typ, playerID, d)
	}
}

// --- zone surgery ---

// takeFromDeck pulls the first copy of defID out of the player's deck,
// falling back to the hand when every copy was drawn.
func (g *testGame) takeFromDeck(p *state.Player, defID string) string {
	g.t.Helper()
	for _, zone := range []*[]string{&p.Deck, &p.Hand} {
		for i, id := range *zone {
			if g.e.Instance(id).Def.CardID == defID {
				*zone = append((*zone)[:i], (*zone)[i+1:]...)
				return id
			}
		}
	}
	g.t.Fatalf("no %s left in deck of %s", defID, p.ID)
	return ""
}

// takeCheer pulls the first copy of defID out of the player's cheer deck.
func (g *testGame) takeCheer(p *state.Player, defID string) string {
	g.t.Helper()
	for i, id := range p.CheerDeck {
		if g.e.Instance(id).Def.CardID == defID {
			p.CheerDeck = append(p.CheerDeck[:i], p.CheerDeck[i+1:]...)
			return id
		}
	}
	g.t.Fatalf("no %s left in cheer deck of %s", defID, p.ID)
	return ""
}

// putCenter replaces the player's center with a fresh copy of defID.
func (g *testGame) putCenter(p *state.Player, defID string) string {
	id := g.takeFromDeck(p, defID)
	p.Center = []string{id}
	return id
}

// putBackstage appends a fresh copy of defID to the backstage.
func (g *testGame) putBackstage(p *state.Player, defID string) string {
	id := g.takeFromDeck(p, defID)
	p.Backstage = append(p.Backstage, id)
	return id
}

// putCollab places a fresh copy of defID in the collab spot.
func (g *testGame) putCollab(p *state.Player, defID string) string {
	id := g.takeFromDeck(p, defID)
	p.Collab = []string{id}
	return id
}

// toHand moves a fresh copy of defID into the player's hand.
func (g *testGame) toHand(p *state.Player, defID string) string {
	id := g.takeFromDeck(p, defID)
	p.Hand = append(p.Hand, id)
	return id
}

// attachCheerTo sticks a cheer of the given color card onto holder.
func (g *testGame) attachCheerTo(p *state.Player, holderID, cheerDefID string) string {
	id := g.takeCheer(p, cheerDefID)
	g.e.Instance(holderID).AttachedCheer = append(g.e.Instance(holderID).AttachedCheer, id)
	return id
}

// addHolopower moves n cards off the top of the deck into holopower.
func (g *testGame) addHolopower(p *state.Player, n int) {
	for i := 0; i < n; i++ {
		id := p.Deck[0]
		p.Deck = p.Deck[1:]
		p.Holopower = append([]string{id}, p.Holopower...)
	}
}

// --- event inspection ---

// mark remembers the current log position for later sequence checks.
func (g *testGame) mark() int {
	return len(g.e.events)
}

// lastEventFor finds the newest event of the given type addressed to the
// player.
func (g *testGame) lastEventFor(playerID string, typ EventType) Event {
	g.t.Helper()
	for i := len(g.e.events) - 1; i >= 0; i-- {
		ev := g.e.events[i]
		if ev.EventPlayerID == playerID && ev.Type == typ {
			return ev
		}
	}
	g.t.Fatalf("no %s event for %s", typ, playerID)
	return Event{}
}

// typesFor lists the event types addressed to the player since mark, in
// order.
func (g *testGame) typesFor(playerID string, mark int) []EventType {
	var out []EventType
	for _, ev := range g.e.events[mark:] {
		if ev.EventPlayerID == playerID {
			out = append(out, ev.Type)
		}
	}
	return out
}

// eventsFor lists the events addressed to the player since mark.
func (g *testGame) eventsFor(playerID string, mark int) []Event {
	var out []Event
	for _, ev := range g.e.events[mark:] {
		if ev.EventPlayerID == playerID {
			out = append(out, ev)
		}
	}
	return out
}

func requireTypes(t *testing.T, got []EventType, want ...EventType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("event sequence length %d, want %d\ngot:  %v\nwant: %v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s\ngot:  %v\nwant: %v", i, got[i], want[i], got, want)
		}
	}
}

func attrInt(t *testing.T, ev Event, key string) int {
	t.Helper()
	switch v := ev.Payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	t.Fatalf("%s payload %q is not a number: %#v", ev.Type, key, ev.Payload[key])
	return 0
}

func attrString(t *testing.T, ev Event, key string) string {
	t.Helper()
	s, ok := ev.Payload[key].(string)
	if !ok {
		t.Fatalf("%s payload %q is not a string: %#v", ev.Type, key, ev.Payload[key])
	}
	return s
}

func attrBool(t *testing.T, ev Event, key string) bool {
	t.Helper()
	b, ok := ev.Payload[key].(bool)
	if !ok {
		t.Fatalf("%s payload %q is not a bool: %#v", ev.Type, key, ev.Payload[key])
	}
	return b
}
