package engine

import (
	"holocardserver/internal/cards"
	"holocardserver/internal/state"
)

var mainStepActions = []string{
	ActionMainStepPlaceHolomem,
	ActionMainStepBloom,
	ActionMainStepCollab,
	ActionMainStepOshiSkill,
	ActionMainStepPlaySupport,
	ActionMainStepBatonPass,
	ActionMainStepBeginPerformance,
	ActionMainStepEndTurn,
}

// mainStepDecision advertises the legal main-step actions and waits for
// one. Every main-step action funnels back here until the player ends
// the turn or begins performance.
func (e *Engine) mainStepDecision() {
	if e.gameOver {
		return
	}
	p := e.players[e.activeIdx]
	e.emit(EventDecisionMainStep, map[string]any{
		"active_player":     p.ID,
		"available_actions": e.availableMainActions(p),
	})
	e.decision = &decision{
		typ:      EventDecisionMainStep,
		playerID: p.ID,
		actions:  mainStepActions,
		handle: func(action string, data map[string]any) string {
			return e.handleMainStep(p, action, data)
		},
	}
}

func (e *Engine) availableMainActions(p *state.Player) []map[string]any {
	var actions []map[string]any

	if placeable := e.placeableHolomem(p); len(placeable) > 0 {
		actions = append(actions, map[string]any{
			"action_type": ActionMainStepPlaceHolomem,
			"card_ids":    placeable,
		})
	}
	for _, pair := range e.bloomPairs(p) {
		actions = append(actions, map[string]any{
			"action_type": ActionMainStepBloom,
			"card_id":     pair[0],
			"target_id":   pair[1],
		})
	}
	if targets := e.collabTargets(p); len(targets) > 0 {
		actions = append(actions, map[string]any{
			"action_type": ActionMainStepCollab,
			"card_ids":    targets,
		})
	}
	oshi := e.inst(p.Oshi)
	for _, sk := range oshi.Def.OshiSkills {
		if e.oshiSkillUsable(p, &sk) {
			actions = append(actions, map[string]any{
				"action_type": ActionMainStepOshiSkill,
				"skill_id":    sk.SkillID,
				"cost":        sk.Cost,
			})
		}
	}
	for _, id := range p.Hand {
		def := e.inst(id).Def
		if def.CardType == cards.TypeSupport && e.supportPlayable(p, def) {
			actions = append(actions, map[string]any{
				"action_type": ActionMainStepPlaySupport,
				"card_id":     id,
			})
		}
	}
	if centerID, ok := e.batonPassReady(p); ok {
		actions = append(actions, map[string]any{
			"action_type":     ActionMainStepBatonPass,
			"center_id":       centerID,
			"cost":            e.inst(centerID).Def.BatonPassCost,
			"available_cheer": e.inst(centerID).AttachedCheer,
		})
	}
	if e.turn > 1 {
		actions = append(actions, map[string]any{
			"action_type": ActionMainStepBeginPerformance,
		})
	}
	actions = append(actions, map[string]any{
		"action_type": ActionMainStepEndTurn,
	})
	return actions
}

func (e *Engine) placeableHolomem(p *state.Player) []string {
	if len(p.Backstage) >= maxBackstage {
		return nil
	}
	var out []string
	for _, id := range p.Hand {
		switch e.inst(id).Def.CardType {
		case cards.TypeHolomemDebut, cards.TypeHolomemSpot:
			out = append(out, id)
		}
	}
	return out
}

// bloomPairs returns every legal (bloom card in hand, stage target) pair.
// Blooming is closed on each player's first turn, onto holomem played or
// bloomed this turn, and onto spot holomem.
func (e *Engine) bloomPairs(p *state.Player) [][2]string {
	if p.TurnsTaken < 2 {
		return nil
	}
	var pairs [][2]string
	for _, id := range p.Hand {
		bloom := e.inst(id).Def
		if bloom.CardType != cards.TypeHolomemBloom {
			continue
		}
		for _, targetID := range p.Stage() {
			target := e.inst(targetID)
			if e.canBloomOnto(bloom, target) {
				pairs = append(pairs, [2]string{id, targetID})
			}
		}
	}
	return pairs
}

func (e *Engine) canBloomOnto(bloom *cards.Definition, target *state.Instance) bool {
	switch target.Def.CardType {
	case cards.TypeHolomemDebut, cards.TypeHolomemBloom:
	default:
		return false
	}
	if target.BloomedThisTurn || target.PlayedThisTurn {
		return false
	}
	if bloom.Name != target.Def.Name {
		return false
	}
	diff := bloom.BloomLevel - target.Def.BloomLevel
	return diff == 0 || diff == 1
}

func (e *Engine) collabTargets(p *state.Player) []string {
	if p.CollabedThisTurn || len(p.Collab) > 0 || len(p.Deck) == 0 {
		return nil
	}
	var out []string
	for _, id := range p.Backstage {
		if !e.inst(id).Resting {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) oshiSkillUsable(p *state.Player, sk *cards.OshiSkill) bool {
	if len(p.Holopower) < sk.Cost {
		return false
	}
	switch sk.Limit {
	case cards.LimitOncePerTurn:
		return !p.OshiSkillsUsedTurn[sk.SkillID]
	case cards.LimitOncePerGame:
		return !p.OshiSkillsUsedGame[sk.SkillID]
	}
	return true
}

// supportPlayable gates limited supports: one per turn, and none on the
// starting player's first turn.
func (e *Engine) supportPlayable(p *state.Player, def *cards.Definition) bool {
	if !def.Limited {
		return true
	}
	return !p.UsedLimitedThisTurn && e.turn > 1
}

func (e *Engine) batonPassReady(p *state.Player) (string, bool) {
	if p.BatonPassedThisTurn || len(p.Center) == 0 {
		return "", false
	}
	center := e.inst(p.Center[0])
	if len(center.AttachedCheer) < center.Def.BatonPassCost {
		return "", false
	}
	swappable := false
	for _, id := range p.Backstage {
		if !e.inst(id).Resting {
			swappable = true
			break
		}
	}
	if !swappable {
		return "", false
	}
	return center.GameCardID, true
}

func (e *Engine) handleMainStep(p *state.Player, action string, data map[string]any) string {
	switch action {
	case ActionMainStepPlaceHolomem:
		return e.doPlaceHolomem(p, data)
	case ActionMainStepBloom:
		return e.doBloom(p, data)
	case ActionMainStepCollab:
		return e.doCollab(p, data)
	case ActionMainStepOshiSkill:
		return e.doOshiSkillAction(p, data)
	case ActionMainStepPlaySupport:
		return e.doPlaySupport(p, data)
	case ActionMainStepBatonPass:
		return e.doBatonPass(p, data)
	case ActionMainStepBeginPerformance:
		if e.turn == 1 {
			return "performance_on_first_turn"
		}
		e.push(e.performanceDecision)
		return ""
	case ActionMainStepEndTurn:
		e.push(e.endTurn)
		return ""
	}
	return "unknown_action"
}

func (e *Engine) doPlaceHolomem(p *state.Player, data map[string]any) string {
	cardID := asString(data["card_id"])
	if !containsString(e.placeableHolomem(p), cardID) {
		return "invalid_placement"
	}
	p.RemoveFromHand(cardID)
	p.Backstage = append(p.Backstage, cardID)
	in := e.inst(cardID)
	in.PlayedThisTurn = true
	e.emit(EventPlaceHolomem, map[string]any{
		"player_id":    p.ID,
		"game_card_id": cardID,
		"card_id":      in.Def.CardID,
		"to_zone":      state.ZoneBackstage,
	})
	e.push(e.mainStepDecision)
	return ""
}

func (e *Engine) doBloom(p *state.Player, data map[string]any) string {
	cardID := asString(data["card_id"])
	targetID := asString(data["target_id"])
	legal := false
	for _, pair := range e.bloomPairs(p) {
		if pair[0] == cardID && pair[1] == targetID {
			legal = true
			break
		}
	}
	if !legal {
		return "invalid_bloom"
	}

	bloom := e.inst(cardID)
	target := e.inst(targetID)
	p.RemoveFromHand(cardID)
	bloom.Damage = target.Damage
	bloom.AttachedCheer = target.AttachedCheer
	bloom.AttachedSupport = target.AttachedSupport
	bloom.Resting = target.Resting
	bloom.BloomedFrom = append(append([]string{}, target.BloomedFrom...), targetID)
	target.AttachedCheer = nil
	target.AttachedSupport = nil
	target.BloomedFrom = nil
	bloom.BloomedThisTurn = true
	p.ReplaceOnStage(targetID, cardID)

	e.emit(EventBloom, map[string]any{
		"player_id":      p.ID,
		"bloom_card_id":  cardID,
		"target_card_id": targetID,
		"card_id":        bloom.Def.CardID,
		"from_zone":      state.ZoneHand,
	})
	e.push(e.mainStepDecision)
	return ""
}

func (e *Engine) doCollab(p *state.Player, data map[string]any) string {
	cardID := asString(data["card_id"])
	if !containsString(e.collabTargets(p), cardID) {
		return "invalid_collab"
	}
	p.RemoveFromBackstage(cardID)
	p.Collab = []string{cardID}
	p.CollabedThisTurn = true

	// Collabing generates one holopower off the top of the deck.
	top := p.Deck[0]
	p.Deck = p.Deck[1:]
	p.Holopower = append([]string{top}, p.Holopower...)

	in := e.inst(cardID)
	e.emit(EventCollab, map[string]any{
		"player_id":           p.ID,
		"game_card_id":        cardID,
		"card_id":             in.Def.CardID,
		"holopower_generated": 1,
	})
	e.push(e.mainStepDecision)
	if len(in.Def.CollabEffects) > 0 {
		ctx := &effectContext{player: p, source: in}
		e.pushEffects(ctx, in.Def.CollabEffects)
	}
	return ""
}

func (e *Engine) doOshiSkillAction(p *state.Player, data map[string]any) string {
	skillID := asString(data["skill_id"])
	oshi := e.inst(p.Oshi)
	sk := oshi.Def.Skill(skillID)
	if sk == nil || !e.oshiSkillUsable(p, sk) {
		return "invalid_oshi_skill"
	}
	e.push(e.mainStepDecision)
	e.activateOshiSkill(p, sk)
	return ""
}

func (e *Engine) doPlaySupport(p *state.Player, data map[string]any) string {
	cardID := asString(data["card_id"])
	if !p.InHand(cardID) {
		return "invalid_support"
	}
	in := e.inst(cardID)
	if in.Def.CardType != cards.TypeSupport || !e.supportPlayable(p, in.Def) {
		return "invalid_support"
	}

	p.RemoveFromHand(cardID)
	if in.Def.Limited {
		p.UsedLimitedThisTurn = true
	}
	e.emit(EventPlaySupportCard, map[string]any{
		"player_id":    p.ID,
		"game_card_id": cardID,
		"card_id":      in.Def.CardID,
		"limited":      in.Def.Limited,
	})

	ctx := &effectContext{player: p, source: in}
	e.push(e.mainStepDecision)
	e.push(func() { e.finishSupport(ctx) })
	e.pushEffects(ctx, in.Def.SupportEffects)
	return ""
}

// finishSupport archives a played support unless an effect attached it
// to a holomem.
func (e *Engine) finishSupport(ctx *effectContext) {
	if ctx.attached {
		return
	}
	ctx.player.ToArchive(ctx.source.GameCardID)
	e.emit(EventMoveCard, map[string]any{
		"moving_player_id": ctx.player.ID,
		"from_zone":        state.ZoneFloating,
		"to_zone":          state.ZoneArchive,
		"game_card_id":     ctx.source.GameCardID,
		"card_id":          ctx.source.Def.CardID,
	})
}

func (e *Engine) doBatonPass(p *state.Player, data map[string]any) string {
	centerID, ok := e.batonPassReady(p)
	if !ok {
		return "invalid_baton_pass"
	}
	newCenterID := asString(data["card_id"])
	if !containsString(p.Backstage, newCenterID) || e.inst(newCenterID).Resting {
		return "invalid_baton_pass"
	}
	center := e.inst(centerID)
	cheerIDs := asStrings(data["cheer_ids"])
	if len(cheerIDs) != center.Def.BatonPassCost {
		return "invalid_baton_pass_cost"
	}
	seen := map[string]bool{}
	for _, id := range cheerIDs {
		if seen[id] || !containsString(center.AttachedCheer, id) {
			return "invalid_baton_pass_cost"
		}
		seen[id] = true
	}

	for _, id := range cheerIDs {
		e.detachCheerToArchive(p, center, id)
	}
	p.Center = nil
	p.RemoveFromBackstage(newCenterID)
	p.Backstage = append(p.Backstage, centerID)
	p.Center = []string{newCenterID}
	p.BatonPassedThisTurn = true

	e.emit(EventBatonPass, map[string]any{
		"player_id":    p.ID,
		"from_card_id": centerID,
		"to_card_id":   newCenterID,
		"cheer_paid":   cheerIDs,
	})
	e.push(e.mainStepDecision)
	return ""
}

// detachCheerToArchive removes one cheer from holder into the owner's
// archive and announces the move.
func (e *Engine) detachCheerToArchive(owner *state.Player, holder *state.Instance, cheerID string) {
	for i, id := range holder.AttachedCheer {
		if id == cheerID {
			holder.AttachedCheer = append(holder.AttachedCheer[:i], holder.AttachedCheer[i+1:]...)
			break
		}
	}
	owner.ToArchive(cheerID)
	e.emit(EventMoveAttachedCard, map[string]any{
		"owning_player_id": owner.ID,
		"from_holomem_id":  holder.GameCardID,
		"to_holomem_id":    state.ZoneArchive,
		"attached_id":      cheerID,
		"card_id":          e.inst(cheerID).Def.CardID,
	})
}
