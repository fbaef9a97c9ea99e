package engine

import (
	"fmt"

	"holocardserver/internal/cards"
	"holocardserver/internal/state"
)

// Player action types as they appear on the wire.
const (
	ActionMulligan         = "Mulligan"
	ActionInitialPlacement = "InitialPlacement"

	ActionMainStepPlaceHolomem     = "MainStepPlaceHolomem"
	ActionMainStepBloom            = "MainStepBloom"
	ActionMainStepCollab           = "MainStepCollab"
	ActionMainStepOshiSkill        = "MainStepOshiSkill"
	ActionMainStepPlaySupport      = "MainStepPlaySupport"
	ActionMainStepBatonPass        = "MainStepBatonPass"
	ActionMainStepBeginPerformance = "MainStepBeginPerformance"
	ActionMainStepEndTurn          = "MainStepEndTurn"

	ActionPerformanceStepUseArt  = "PerformanceStepUseArt"
	ActionPerformanceStepEndTurn = "PerformanceStepEndTurn"

	ActionEffectChooseCards = "EffectResolution_ChooseCardsForEffect"
	ActionEffectMoveCheer   = "EffectResolution_MoveCheerBetweenHolomems"
	ActionEffectMakeChoice  = "EffectResolution_MakeChoice"
)

// GameOver reasons.
const (
	ReasonDeckOut    = "deck_out"
	ReasonLifeZero   = "life_zero"
	ReasonNoHolomem  = "no_holomem"
	ReasonConcede    = "concede"
	ReasonDisconnect = "disconnect"
	ReasonError      = "internal_error"
)

const (
	startingHandSize = 7
	defaultLife      = 5
	maxBackstage     = 5
)

// DeckList is one player's submitted deck: an oshi plus definition-id
// counts for the main and cheer decks.
type DeckList struct {
	OshiID    string         `json:"oshi_id"`
	Deck      map[string]int `json:"deck"`
	CheerDeck map[string]int `json:"cheer_deck"`
}

// decision is the single outstanding input request. The engine is always
// either game-over or waiting on exactly one decision.
type decision struct {
	typ      EventType
	playerID string
	actions  []string
	// handle validates and applies the answer, then pushes whatever
	// continues the game. It must leave state untouched when returning a
	// non-empty rejection reason.
	handle func(action string, data map[string]any) string
}

// Engine is one match: the full deterministic state machine. It is not
// safe for concurrent use; the owning room serializes access.
type Engine struct {
	db      *cards.Database
	rng     state.Rand
	table   *state.Table
	players [2]*state.Player

	activeIdx   int
	startingIdx int
	turn        int // 1-based, increments every player turn

	decision *decision
	stack    []func()

	nextDieRolls []int

	gameOver   bool
	winnerID   string
	overReason string

	events    []Event
	observers map[string]int
}

// NewEngine builds a match for two validated decks. Instances for every
// card in both decks are minted up front so game card ids are stable for
// the whole match.
func NewEngine(db *cards.Database, rng state.Rand, ids [2]string, decks [2]DeckList) (*Engine, error) {
	e := &Engine{
		db:        db,
		rng:       rng,
		table:     state.NewTable(),
		observers: make(map[string]int),
	}
	for i := 0; i < 2; i++ {
		p := state.NewPlayer(ids[i])
		oshiDef := db.Card(decks[i].OshiID)
		if oshiDef == nil || oshiDef.CardType != cards.TypeOshi {
			return nil, fmt.Errorf("engine: player %s: bad oshi %q", ids[i], decks[i].OshiID)
		}
		p.Oshi = e.table.NewInstance(oshiDef, p.ID).GameCardID
		var err error
		p.Deck, err = e.mintPile(p.ID, decks[i].Deck)
		if err != nil {
			return nil, err
		}
		p.CheerDeck, err = e.mintPile(p.ID, decks[i].CheerDeck)
		if err != nil {
			return nil, err
		}
		e.players[i] = p
	}
	return e, nil
}

func (e *Engine) mintPile(owner string, counts map[string]int) ([]string, error) {
	var pile []string
	for _, cardID := range sortedKeys(counts) {
		def := e.db.Card(cardID)
		if def == nil {
			return nil, fmt.Errorf("engine: player %s: unknown card %q", owner, cardID)
		}
		for n := 0; n < counts[cardID]; n++ {
			pile = append(pile, e.table.NewInstance(def, owner).GameCardID)
		}
	}
	return pile, nil
}

// Begin shuffles, deals opening hands, picks the starting player and
// drives the game to its first decision.
func (e *Engine) Begin() {
	for _, p := range e.players {
		e.shuffle(p.Deck)
		e.shuffle(p.CheerDeck)
		for i := 0; i < startingHandSize; i++ {
			p.DrawOne()
		}
	}
	e.startingIdx = e.rng.Intn(2)
	e.activeIdx = e.startingIdx

	starter := e.players[e.startingIdx]
	e.emitEach(EventGameStart, func(viewer *state.Player) map[string]any {
		return map[string]any{
			"your_id":            viewer.ID,
			"opponent_id":        e.opponentOf(viewer).ID,
			"starting_player_id": starter.ID,
			"your_hand":          e.cardRefs(viewer.Hand, true),
			"your_oshi_id":       e.inst(viewer.Oshi).Def.CardID,
		}
	})

	second := 1 - e.startingIdx
	e.push(e.beginFirstTurn)
	e.push(func() { e.askInitialPlacement(second) })
	e.push(func() { e.askInitialPlacement(e.startingIdx) })
	e.push(func() { e.askMulligan(second) })
	e.push(func() { e.askMulligan(e.startingIdx) })
	e.run()
}

// HandleAction applies one player input. Invalid inputs produce a
// GameError event to the acting player only and leave state unchanged.
func (e *Engine) HandleAction(playerID, actionType string, data map[string]any) {
	if e.gameOver {
		e.rejectAction(playerID, actionType, "game_over")
		return
	}
	d := e.decision
	if d == nil {
		e.rejectAction(playerID, actionType, "no_decision_pending")
		return
	}
	if d.playerID != playerID {
		e.rejectAction(playerID, actionType, "not_your_decision")
		return
	}
	if !containsString(d.actions, actionType) {
		e.rejectAction(playerID, actionType, "wrong_action_for_decision")
		return
	}
	e.decision = nil
	if reason := d.handle(actionType, data); reason != "" {
		e.decision = d
		e.rejectAction(playerID, actionType, reason)
		return
	}
	e.run()
}

// Concede ends the game immediately in the opponent's favor. reason is
// ReasonConcede for a voluntary forfeit, ReasonDisconnect for a timeout.
func (e *Engine) Concede(playerID, reason string) {
	if e.gameOver {
		return
	}
	p, _ := e.playerByID(playerID)
	if p == nil {
		return
	}
	e.endGame(e.opponentOf(p).ID, reason)
}

// Abort ends the game with no winner after an unrecoverable server fault.
func (e *Engine) Abort() {
	if e.gameOver {
		return
	}
	e.endGame("", ReasonError)
}

// SetNextDieRolls queues forced die results consumed before the match
// randomness source. Test hook.
func (e *Engine) SetNextDieRolls(rolls []int) {
	e.nextDieRolls = append(e.nextDieRolls, rolls...)
}

func (e *Engine) IsGameOver() bool       { return e.gameOver }
func (e *Engine) WinnerID() string       { return e.winnerID }
func (e *Engine) ActivePlayerID() string { return e.players[e.activeIdx].ID }

func (e *Engine) PlayerIDs() [2]string {
	return [2]string{e.players[0].ID, e.players[1].ID}
}

// Player exposes a player's state for tests and room status snapshots.
func (e *Engine) Player(id string) *state.Player {
	p, _ := e.playerByID(id)
	return p
}

// Instance resolves a game card id. Test and room helper.
func (e *Engine) Instance(id string) *state.Instance {
	return e.table.Get(id)
}

// --- setup: mulligan and placement ---

func (e *Engine) askMulligan(idx int) {
	p := e.players[idx]
	if !e.handHasDebut(p) {
		if 8-p.MulliganCount <= 0 {
			// Cannot ever field a debut; the opponent takes the game.
			e.endGame(e.opponentOf(p).ID, ReasonNoHolomem)
			return
		}
		e.performMulligan(p, true)
		e.push(func() { e.askMulligan(idx) })
		return
	}
	e.emit(EventDecisionMulligan, map[string]any{
		"player_id": p.ID,
	})
	e.decision = &decision{
		typ:      EventDecisionMulligan,
		playerID: p.ID,
		actions:  []string{ActionMulligan},
		handle: func(_ string, data map[string]any) string {
			if asBool(data["do_mulligan"]) {
				e.performMulligan(p, false)
				e.push(func() { e.askMulligan(idx) })
			}
			return ""
		},
	}
}

// performMulligan returns the hand to the deck, reshuffles and redraws.
// Every mulligan past the first costs one card.
func (e *Engine) performMulligan(p *state.Player, forced bool) {
	p.MulliganCount++
	redraw := startingHandSize - (p.MulliganCount - 1)
	if redraw < 0 {
		redraw = 0
	}
	p.Deck = append(p.Deck, p.Hand...)
	p.Hand = nil
	e.shuffle(p.Deck)
	for i := 0; i < redraw; i++ {
		p.DrawOne()
	}
	e.emitEach(EventMulligan, func(viewer *state.Player) map[string]any {
		return map[string]any{
			"player_id":   p.ID,
			"forced":      forced,
			"hand_count":  len(p.Hand),
			"drawn_cards": e.cardRefs(p.Hand, viewer.ID == p.ID),
		}
	})
}

func (e *Engine) handHasDebut(p *state.Player) bool {
	for _, id := range p.Hand {
		if e.inst(id).Def.CardType == cards.TypeHolomemDebut {
			return true
		}
	}
	return false
}

func (e *Engine) askInitialPlacement(idx int) {
	p := e.players[idx]
	e.emit(EventDecisionInitialPlacement, map[string]any{
		"player_id": p.ID,
	})
	e.decision = &decision{
		typ:      EventDecisionInitialPlacement,
		playerID: p.ID,
		actions:  []string{ActionInitialPlacement},
		handle: func(_ string, data map[string]any) string {
			centerID := asString(data["center_id"])
			backstage := asStrings(data["backstage_ids"])
			if !p.InHand(centerID) || e.inst(centerID).Def.CardType != cards.TypeHolomemDebut {
				return "invalid_center"
			}
			if len(backstage) > maxBackstage {
				return "too_many_backstage"
			}
			seen := map[string]bool{centerID: true}
			for _, id := range backstage {
				if seen[id] || !p.InHand(id) {
					return "invalid_backstage"
				}
				switch e.inst(id).Def.CardType {
				case cards.TypeHolomemDebut, cards.TypeHolomemSpot:
				default:
					return "invalid_backstage"
				}
				seen[id] = true
			}

			p.RemoveFromHand(centerID)
			p.Center = []string{centerID}
			for _, id := range backstage {
				p.RemoveFromHand(id)
				p.Backstage = append(p.Backstage, id)
			}
			p.PlacementDone = true
			e.emitEach(EventInitialPlacement, func(viewer *state.Player) map[string]any {
				own := viewer.ID == p.ID
				return map[string]any{
					"player_id":       p.ID,
					"center":          e.cardRefs([]string{centerID}, own),
					"backstage":       e.cardRefs(backstage, own),
					"backstage_count": len(backstage),
				}
			})
			if e.players[0].PlacementDone && e.players[1].PlacementDone {
				e.revealPlacement()
			}
			return ""
		},
	}
}

// revealPlacement flips both stages face up and deals life from the top
// of each cheer deck.
func (e *Engine) revealPlacement() {
	reveal := make(map[string]any, 2)
	for _, p := range e.players {
		life := e.inst(p.Oshi).Def.Life
		if life <= 0 {
			life = defaultLife
		}
		for i := 0; i < life && len(p.CheerDeck) > 0; i++ {
			top, _ := p.TakeTopCheer()
			p.Life = append(p.Life, top)
		}
		reveal[p.ID] = map[string]any{
			"oshi_id":    e.inst(p.Oshi).Def.CardID,
			"center":     e.cardRefs(p.Center, true),
			"backstage":  e.cardRefs(p.Backstage, true),
			"life_count": len(p.Life),
		}
	}
	e.emit(EventPlacementReveal, map[string]any{"players": reveal})
}

// --- turn chain ---

func (e *Engine) beginFirstTurn() {
	e.turn = 1
	e.activeIdx = e.startingIdx
	e.startTurn()
}

func (e *Engine) endTurn() {
	ending := e.players[e.activeIdx]
	next := e.players[1-e.activeIdx]
	e.emit(EventEndTurn, map[string]any{
		"ending_player_id": ending.ID,
		"active_player":    next.ID,
	})
	e.activeIdx = 1 - e.activeIdx
	e.turn++
	e.startTurn()
}

func (e *Engine) startTurn() {
	p := e.players[e.activeIdx]
	p.TurnsTaken++
	p.ResetTurnFlags()
	for _, id := range p.Stage() {
		e.inst(id).ResetTurnFlags()
	}
	e.emit(EventStartTurn, map[string]any{
		"active_player": p.ID,
		"turn_count":    e.turn,
	})

	// Reset step: activate everything resting, then return the collab
	// holomem to backstage where it rests until the next reset.
	var activated []string
	for _, id := range p.Stage() {
		in := e.inst(id)
		if in.Resting {
			in.Resting = false
			activated = append(activated, id)
		}
	}
	e.emit(EventResetStepActivate, map[string]any{
		"player_id":          p.ID,
		"activated_card_ids": activated,
	})
	collabMoved := ""
	if len(p.Collab) > 0 {
		collabMoved = p.Collab[0]
		p.Collab = nil
		p.Backstage = append(p.Backstage, collabMoved)
		e.inst(collabMoved).Resting = true
	}
	e.emit(EventResetStepCollab, map[string]any{
		"player_id":      p.ID,
		"collab_card_id": collabMoved,
	})

	// Draw step. Decking out loses on the spot.
	if len(p.Deck) == 0 {
		e.endGame(e.opponentOf(p).ID, ReasonDeckOut)
		return
	}
	drawn, _ := p.DrawOne()
	e.emitEach(EventDraw, func(viewer *state.Player) map[string]any {
		return map[string]any{
			"player_id":   p.ID,
			"drawn_cards": e.cardRefs([]string{drawn}, viewer.ID == p.ID),
		}
	})

	e.cheerStep(p)
}

// cheerStep reveals the top cheer and asks the active player to place it
// on one of their holomem. Skipped entirely on an empty cheer deck.
func (e *Engine) cheerStep(p *state.Player) {
	if len(p.CheerDeck) == 0 {
		e.mainStepDecision()
		return
	}
	cheerID := p.CheerDeck[0]
	options := p.Stage()
	if len(options) == 0 {
		// Nowhere to place; the revealed cheer is archived.
		p.CheerDeck = p.CheerDeck[1:]
		p.ToArchive(cheerID)
		e.mainStepDecision()
		return
	}
	e.emit(EventCheerStep, map[string]any{
		"active_player":  p.ID,
		"cheer_to_place": e.cardRefs([]string{cheerID}, true),
		"source":         state.ZoneCheerDeck,
		"options":        options,
	})
	e.decision = &decision{
		typ:      EventCheerStep,
		playerID: p.ID,
		actions:  []string{ActionEffectMoveCheer},
		handle: func(_ string, data map[string]any) string {
			placements := asPlacements(data["placements"])
			target, ok := placements[cheerID]
			if !ok || len(placements) != 1 || !containsString(options, target) {
				return "invalid_cheer_placement"
			}
			p.CheerDeck = p.CheerDeck[1:]
			e.attachCheer(p, cheerID, state.ZoneCheerDeck, target)
			e.push(e.mainStepDecision)
			return ""
		},
	}
}

// attachCheer moves one cheer card onto a holomem and announces it.
// fromName is either a zone name or the holder it came off of.
func (e *Engine) attachCheer(owner *state.Player, cheerID, fromName, targetID string) {
	holder := e.inst(targetID)
	holder.AttachedCheer = append(holder.AttachedCheer, cheerID)
	e.emit(EventMoveAttachedCard, map[string]any{
		"owning_player_id": owner.ID,
		"from_holomem_id":  fromName,
		"to_holomem_id":    targetID,
		"attached_id":      cheerID,
		"card_id":          e.inst(cheerID).Def.CardID,
	})
}

// --- stack plumbing ---

func (e *Engine) push(f func()) {
	e.stack = append(e.stack, f)
}

func (e *Engine) run() {
	for !e.gameOver && e.decision == nil && len(e.stack) > 0 {
		f := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		f()
	}
}

func (e *Engine) endGame(winnerID, reason string) {
	e.gameOver = true
	e.winnerID = winnerID
	e.overReason = reason
	e.decision = nil
	e.stack = nil
	loser := ""
	for _, p := range e.players {
		if winnerID != "" && p.ID != winnerID {
			loser = p.ID
		}
	}
	e.emit(EventGameOver, map[string]any{
		"winner_id": winnerID,
		"loser_id":  loser,
		"reason":    reason,
	})
}

func (e *Engine) rejectAction(playerID, actionType, reason string) {
	e.emitTo(playerID, EventGameError, map[string]any{
		"error_id":    "action_rejected",
		"action_type": actionType,
		"reason":      reason,
	})
}

// --- small helpers ---

func (e *Engine) inst(id string) *state.Instance {
	return e.table.Get(id)
}

func (e *Engine) playerByID(id string) (*state.Player, int) {
	for i, p := range e.players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (e *Engine) opponentOf(p *state.Player) *state.Player {
	if e.players[0] == p {
		return e.players[1]
	}
	return e.players[0]
}

func (e *Engine) shuffle(ids []string) {
	e.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

// cardRefs renders game ids with their definitions, substituting the
// unknown sentinel when the viewer may not see the identity.
func (e *Engine) cardRefs(ids []string, revealed bool) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		cardID := state.UnknownCardID
		if revealed {
			cardID = e.inst(id).Def.CardID
		}
		out = append(out, map[string]any{
			"game_card_id": id,
			"card_id":      cardID,
		})
	}
	return out
}

func (e *Engine) onStage(p *state.Player, id string) bool {
	return containsString(p.Stage(), id)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
