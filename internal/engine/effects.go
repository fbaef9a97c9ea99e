package engine

import (
	"holocardserver/internal/cards"
	"holocardserver/internal/state"
)

// effectContext carries who is resolving an effect and on whose behalf.
type effectContext struct {
	player   *state.Player   // controller of the effect
	source   *state.Instance // card the effect came from
	holder   *state.Instance // holomem the source is attached to, if any
	attacker *state.Instance // art performer, for on-damage triggers
	art      *artContext     // art in flight, for boost_stat
	chosen   *state.Instance // result of choose_holomem_for_effect
	attached bool            // attach_card consumed the floating support
}

// pushEffects schedules an effect list so the first listed effect
// resolves first.
func (e *Engine) pushEffects(ctx *effectContext, fx []cards.Effect) {
	for i := len(fx) - 1; i >= 0; i-- {
		eff := fx[i]
		e.push(func() { e.resolveEffect(ctx, eff) })
	}
}

// resolveEffect evaluates conditions at resolution time; a failed gate
// falls through to the negative-condition effects.
func (e *Engine) resolveEffect(ctx *effectContext, eff cards.Effect) {
	if !e.conditionsMet(ctx, eff.Conditions) {
		e.pushEffects(ctx, eff.NegativeEffects)
		return
	}
	switch eff.Type {
	case cards.EffectDealDamage:
		e.effDealDamage(ctx, eff)
	case cards.EffectBoostStat:
		e.effBoostStat(ctx, eff)
	case cards.EffectSendCheer:
		e.effSendCheer(ctx, eff)
	case cards.EffectChooseCards:
		e.effChooseCards(ctx, eff)
	case cards.EffectChooseHolomemForEffect:
		e.effChooseHolomem(ctx, eff)
	case cards.EffectAttachCard:
		e.effAttachCard(ctx)
	case cards.EffectSwapHolomemToCenter:
		e.effSwapToCenter(ctx)
	case cards.EffectMakeChoice:
		e.effMakeChoice(ctx, eff)
	case cards.EffectRollDie:
		e.effRollDie(ctx, eff)
	case cards.EffectOshiSkillUse:
		e.effOshiSkillUse(ctx, eff)
	case cards.EffectMoveCard:
		e.effMoveCard(ctx, eff)
	}
}

func (e *Engine) conditionsMet(ctx *effectContext, conds []cards.Condition) bool {
	for _, c := range conds {
		if !e.conditionMet(ctx, c) {
			return false
		}
	}
	return true
}

func (e *Engine) conditionMet(ctx *effectContext, c cards.Condition) bool {
	switch c.Condition {
	case cards.CondOpponentHasCollab:
		return len(e.opponentOf(ctx.player).Collab) > 0
	case cards.CondOshiIs:
		return e.inst(ctx.player.Oshi).Def.CardID == c.CardID
	case cards.CondOshiSkillUnused:
		oshi := e.inst(ctx.player.Oshi)
		sk := oshi.Def.Skill(c.SkillID)
		if sk == nil {
			return false
		}
		if sk.Limit == cards.LimitOncePerGame {
			return !ctx.player.OshiSkillsUsedGame[c.SkillID]
		}
		return !ctx.player.OshiSkillsUsedTurn[c.SkillID]
	case cards.CondHolopowerAtLeast:
		return len(ctx.player.Holopower) >= c.Amount
	case cards.CondHolderNameIs:
		return ctx.holder != nil && ctx.holder.Def.Name == c.Name
	}
	return false
}

// --- verbs ---

func (e *Engine) effDealDamage(ctx *effectContext, eff cards.Effect) {
	var target *state.Instance
	opp := e.opponentOf(ctx.player)
	switch eff.Target {
	case "opponent_center":
		if len(opp.Center) > 0 {
			target = e.inst(opp.Center[0])
		}
	case "opponent_collab":
		if len(opp.Collab) > 0 {
			target = e.inst(opp.Collab[0])
		}
	case "attacker":
		target = ctx.attacker
	}
	if target == nil {
		return
	}
	e.dealDamage(target, eff.Amount, eff.Special)
}

func (e *Engine) effBoostStat(ctx *effectContext, eff cards.Effect) {
	if ctx.art == nil {
		return
	}
	ctx.art.power += eff.Amount
	e.emit(EventBoostStat, map[string]any{
		"card_id":        ctx.art.performer.GameCardID,
		"stat":           "power",
		"amount":         eff.Amount,
		"source_card_id": ctx.source.GameCardID,
	})
}

// effSendCheer asks the controller to move cheer between zones. Today's
// cards all send opponent stage cheer to the archive; the decision shape
// is shared with the life payout in performance resolution.
func (e *Engine) effSendCheer(ctx *effectContext, eff cards.Effect) {
	holderOf := map[string]string{}
	var fromIDs []string
	var cheerOwner *state.Player

	switch eff.FromZone {
	case "opponent_holomem":
		cheerOwner = e.opponentOf(ctx.player)
		holomems := cheerOwner.Stage()
		if eff.FromLimitation == "center_only" {
			holomems = cheerOwner.Center
		}
		for _, hid := range holomems {
			for _, cid := range e.inst(hid).AttachedCheer {
				fromIDs = append(fromIDs, cid)
				holderOf[cid] = hid
			}
		}
	case state.ZoneArchive:
		cheerOwner = ctx.player
		for _, id := range ctx.player.Archive {
			if e.inst(id).Def.CardType == cards.TypeCheer {
				fromIDs = append(fromIDs, id)
			}
		}
	}
	if cheerOwner == nil {
		return
	}

	amountMin := clamp(eff.AmountMin, len(fromIDs))
	amountMax := clamp(eff.AmountMax, len(fromIDs))
	if amountMax == 0 {
		return
	}

	var toOptions []string
	if eff.ToZone == state.ZoneArchive {
		toOptions = []string{state.ZoneArchive}
	} else {
		toOptions = ctx.player.Stage()
	}

	payload := map[string]any{
		"effect_player_id": ctx.player.ID,
		"amount_min":       amountMin,
		"amount_max":       amountMax,
		"from_zone":        eff.FromZone,
		"to_zone":          eff.ToZone,
		"from_options":     fromIDs,
		"to_options":       toOptions,
	}
	if eff.FromLimitation != "" {
		payload["from_limitation"] = eff.FromLimitation
	}
	e.emit(EventDecisionSendCheer, payload)

	e.decision = &decision{
		typ:      EventDecisionSendCheer,
		playerID: ctx.player.ID,
		actions:  []string{ActionEffectMoveCheer},
		handle: func(_ string, data map[string]any) string {
			placements := asPlacements(data["placements"])
			if len(placements) < amountMin || len(placements) > amountMax {
				return "invalid_placements"
			}
			for cid, target := range placements {
				if !containsString(fromIDs, cid) || !containsString(toOptions, target) {
					return "invalid_placements"
				}
			}
			// Apply in option order so the result is deterministic.
			for _, cid := range fromIDs {
				target, ok := placements[cid]
				if !ok {
					continue
				}
				if hid, attached := holderOf[cid]; attached {
					holder := e.inst(hid)
					if target == state.ZoneArchive {
						e.detachCheerToArchive(cheerOwner, holder, cid)
						continue
					}
					e.moveAttachedCheer(cheerOwner, holder, cid, target)
					continue
				}
				// From the archive to a holomem.
				removeID(&cheerOwner.Archive, cid)
				e.attachCheer(cheerOwner, cid, state.ZoneArchive, target)
			}
			return ""
		},
	}
}

func (e *Engine) moveAttachedCheer(owner *state.Player, holder *state.Instance, cheerID, targetID string) {
	removeID(&holder.AttachedCheer, cheerID)
	e.attachCheer(owner, cheerID, holder.GameCardID, targetID)
}

// effChooseCards runs the generic "pick cards from a zone" decision.
// Only the minimum clamps to what is actually available; the advertised
// maximum stays at the printed amount.
func (e *Engine) effChooseCards(ctx *effectContext, eff cards.Effect) {
	var options []string
	switch eff.FromZone {
	case state.ZoneArchive:
		for _, id := range ctx.player.Archive {
			if eff.CardTypeFilter == "" || string(e.inst(id).Def.CardType) == eff.CardTypeFilter {
				options = append(options, id)
			}
		}
	case state.ZoneHand:
		for _, id := range ctx.player.Hand {
			if eff.CardTypeFilter == "" || string(e.inst(id).Def.CardType) == eff.CardTypeFilter {
				options = append(options, id)
			}
		}
	}
	amountMin := clamp(eff.AmountMin, len(options))
	amountMax := eff.AmountMax

	e.emit(EventDecisionChooseCards, map[string]any{
		"effect_player_id":       ctx.player.ID,
		"cards_can_choose":       options,
		"amount_min":             amountMin,
		"amount_max":             amountMax,
		"from_zone":              eff.FromZone,
		"to_zone":                eff.ToZone,
		"reveal_chosen":          eff.RevealChosen,
		"remaining_cards_action": eff.RemainingAction,
	})
	e.decision = &decision{
		typ:      EventDecisionChooseCards,
		playerID: ctx.player.ID,
		actions:  []string{ActionEffectChooseCards},
		handle: func(_ string, data map[string]any) string {
			chosen := asStrings(data["card_ids"])
			if len(chosen) < amountMin || len(chosen) > amountMax {
				return "invalid_choice"
			}
			seen := map[string]bool{}
			for _, id := range chosen {
				if seen[id] || !containsString(options, id) {
					return "invalid_choice"
				}
				seen[id] = true
			}
			for _, id := range chosen {
				e.moveChosenCard(ctx.player, id, eff.FromZone, eff.ToZone, eff.RevealChosen)
			}
			var rest []string
			for _, id := range options {
				if !seen[id] {
					rest = append(rest, id)
				}
			}
			e.moveRemainingCards(ctx.player, rest, eff.FromZone, eff.RemainingAction)
			return ""
		},
	}
}

// effMoveCard moves cards off the top of one zone into another without
// player input. Amount defaults to a single card.
func (e *Engine) effMoveCard(ctx *effectContext, eff cards.Effect) {
	n := eff.Amount
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		zone := zoneOf(ctx.player, eff.FromZone)
		if zone == nil || len(*zone) == 0 {
			return
		}
		e.moveChosenCard(ctx.player, (*zone)[0], eff.FromZone, eff.ToZone, eff.RevealChosen)
	}
}

func (e *Engine) moveChosenCard(p *state.Player, id, fromZone, toZone string, revealed bool) {
	if zone := zoneOf(p, fromZone); zone != nil {
		removeID(zone, id)
	}
	switch toZone {
	case state.ZoneCheerDeck:
		p.CheerDeck = append(p.CheerDeck, id)
	case state.ZoneHand:
		p.Hand = append(p.Hand, id)
	case state.ZoneArchive:
		p.ToArchive(id)
	case state.ZoneDeck:
		p.Deck = append(p.Deck, id)
	case state.ZoneHolopower:
		p.Holopower = append([]string{id}, p.Holopower...)
	}
	e.emitCardMoved(p, id, fromZone, toZone, revealed)
}

// moveRemainingCards disposes of the options a choose_cards decision left
// unchosen.
func (e *Engine) moveRemainingCards(p *state.Player, ids []string, fromZone, action string) {
	switch action {
	case cards.RemainingArchive:
		for _, id := range ids {
			e.moveChosenCard(p, id, fromZone, state.ZoneArchive, false)
		}
	case cards.RemainingBottomDeck:
		for _, id := range ids {
			e.moveChosenCard(p, id, fromZone, state.ZoneDeck, false)
		}
	case cards.RemainingTopDeck:
		// Walk backwards so the cards keep their relative order on top.
		for i := len(ids) - 1; i >= 0; i-- {
			id := ids[i]
			if zone := zoneOf(p, fromZone); zone != nil {
				removeID(zone, id)
			}
			p.Deck = append([]string{id}, p.Deck...)
			e.emitCardMoved(p, id, fromZone, state.ZoneDeck, false)
		}
	}
}

func (e *Engine) emitCardMoved(p *state.Player, id, fromZone, toZone string, revealed bool) {
	e.emitEach(EventMoveCard, func(viewer *state.Player) map[string]any {
		cardID := state.UnknownCardID
		if revealed || viewer.ID == p.ID {
			cardID = e.inst(id).Def.CardID
		}
		return map[string]any{
			"moving_player_id": p.ID,
			"from_zone":        fromZone,
			"to_zone":          toZone,
			"game_card_id":     id,
			"card_id":          cardID,
		}
	})
}

func zoneOf(p *state.Player, zone string) *[]string {
	switch zone {
	case state.ZoneDeck:
		return &p.Deck
	case state.ZoneHand:
		return &p.Hand
	case state.ZoneArchive:
		return &p.Archive
	case state.ZoneCheerDeck:
		return &p.CheerDeck
	case state.ZoneHolopower:
		return &p.Holopower
	}
	return nil
}

// effChooseHolomem picks one of the controller's staged holomem and
// resolves the nested effects with it as the chosen target.
func (e *Engine) effChooseHolomem(ctx *effectContext, eff cards.Effect) {
	options := ctx.player.Stage()
	if len(options) == 0 {
		return
	}
	e.emit(EventDecisionChooseHolomem, map[string]any{
		"effect_player_id": ctx.player.ID,
		"cards_can_choose": options,
		"amount_min":       1,
		"amount_max":       1,
	})
	e.decision = &decision{
		typ:      EventDecisionChooseHolomem,
		playerID: ctx.player.ID,
		actions:  []string{ActionEffectChooseCards},
		handle: func(_ string, data map[string]any) string {
			chosen := asStrings(data["card_ids"])
			if len(chosen) != 1 || !containsString(options, chosen[0]) {
				return "invalid_choice"
			}
			ctx.chosen = e.inst(chosen[0])
			e.pushEffects(ctx, eff.ChosenEffects)
			return ""
		},
	}
}

// effAttachCard attaches the floating support to the chosen holomem.
func (e *Engine) effAttachCard(ctx *effectContext) {
	if ctx.chosen == nil {
		return
	}
	ctx.chosen.AttachedSupport = append(ctx.chosen.AttachedSupport, ctx.source.GameCardID)
	ctx.attached = true
	e.emit(EventMoveCard, map[string]any{
		"moving_player_id": ctx.player.ID,
		"from_zone":        state.ZoneFloating,
		"to_zone":          state.ZoneHolomem,
		"to_holomem_id":    ctx.chosen.GameCardID,
		"game_card_id":     ctx.source.GameCardID,
		"card_id":          ctx.source.Def.CardID,
	})
}

// effSwapToCenter swaps a non-resting backstage holomem into the center.
// Silently skipped when nothing can swap.
func (e *Engine) effSwapToCenter(ctx *effectContext) {
	p := ctx.player
	var options []string
	for _, id := range p.Backstage {
		if !e.inst(id).Resting {
			options = append(options, id)
		}
	}
	if len(options) == 0 {
		return
	}
	e.emit(EventDecisionSwapToCenter, map[string]any{
		"effect_player_id": p.ID,
		"cards_can_choose": options,
	})
	e.decision = &decision{
		typ:      EventDecisionSwapToCenter,
		playerID: p.ID,
		actions:  []string{ActionEffectChooseCards},
		handle: func(_ string, data map[string]any) string {
			chosen := asStrings(data["card_ids"])
			if len(chosen) != 1 || !containsString(options, chosen[0]) {
				return "invalid_choice"
			}
			newCenter := chosen[0]
			if len(p.Center) > 0 {
				old := p.Center[0]
				p.Center = nil
				p.Backstage = append(p.Backstage, old)
				e.emit(EventMoveCard, map[string]any{
					"moving_player_id": p.ID,
					"from_zone":        state.ZoneCenter,
					"to_zone":          state.ZoneBackstage,
					"game_card_id":     old,
					"card_id":          e.inst(old).Def.CardID,
				})
			}
			p.RemoveFromBackstage(newCenter)
			p.Center = []string{newCenter}
			e.emit(EventMoveCard, map[string]any{
				"moving_player_id": p.ID,
				"from_zone":        state.ZoneBackstage,
				"to_zone":          state.ZoneCenter,
				"game_card_id":     newCenter,
				"card_id":          e.inst(newCenter).Def.CardID,
			})
			return ""
		},
	}
}

// effMakeChoice offers the listed effect branches; the answer index picks
// which branch resolves.
func (e *Engine) effMakeChoice(ctx *effectContext, eff cards.Effect) {
	choices := make([]map[string]any, 0, len(eff.Choices))
	for _, branch := range eff.Choices {
		entry := map[string]any{}
		if len(branch) > 0 {
			entry["effect_type"] = string(branch[0].Type)
			if branch[0].SkillID != "" {
				entry["skill_id"] = branch[0].SkillID
			}
		}
		choices = append(choices, entry)
	}
	e.emit(EventDecisionChoice, map[string]any{
		"effect_player_id": ctx.player.ID,
		"choice":           choices,
		"min_choice":       0,
		"max_choice":       len(eff.Choices) - 1,
	})
	e.decision = &decision{
		typ:      EventDecisionChoice,
		playerID: ctx.player.ID,
		actions:  []string{ActionEffectMakeChoice},
		handle: func(_ string, data map[string]any) string {
			idx, ok := asInt(data["choice_index"])
			if !ok || idx < 0 || idx >= len(eff.Choices) {
				return "invalid_choice"
			}
			e.pushEffects(ctx, eff.Choices[idx])
			return ""
		},
	}
}

// effRollDie rolls one d6 and resolves every branch covering the result.
// Queued override rolls take precedence over the match randomness.
func (e *Engine) effRollDie(ctx *effectContext, eff cards.Effect) {
	var result int
	if len(e.nextDieRolls) > 0 {
		result = e.nextDieRolls[0]
		e.nextDieRolls = e.nextDieRolls[1:]
	} else {
		result = e.rng.Intn(6) + 1
	}
	e.emit(EventRollDie, map[string]any{
		"effect_player_id": ctx.player.ID,
		"die_result":       result,
		"rigged":           false,
	})
	for i := len(eff.DieEffects) - 1; i >= 0; i-- {
		branch := eff.DieEffects[i]
		if result >= branch.From && result <= branch.To {
			e.pushEffects(ctx, branch.Effects)
		}
	}
}

func (e *Engine) effOshiSkillUse(ctx *effectContext, eff cards.Effect) {
	oshi := e.inst(ctx.player.Oshi)
	sk := oshi.Def.Skill(eff.SkillID)
	if sk == nil || !e.oshiSkillUsable(ctx.player, sk) {
		return
	}
	e.activateOshiSkill(ctx.player, sk)
}

// activateOshiSkill pays the holopower cost into the archive, marks the
// usage limits and schedules the skill effects. Callers validate first.
func (e *Engine) activateOshiSkill(p *state.Player, sk *cards.OshiSkill) {
	for i := 0; i < sk.Cost; i++ {
		id := p.Holopower[0]
		p.Holopower = p.Holopower[1:]
		p.ToArchive(id)
		e.emit(EventMoveCard, map[string]any{
			"moving_player_id": p.ID,
			"from_zone":        state.ZoneHolopower,
			"to_zone":          state.ZoneArchive,
			"game_card_id":     id,
			"card_id":          e.inst(id).Def.CardID,
		})
	}
	p.OshiSkillsUsedTurn[sk.SkillID] = true
	p.OshiSkillsUsedGame[sk.SkillID] = true
	e.emit(EventOshiSkillActivation, map[string]any{
		"player_id": p.ID,
		"skill_id":  sk.SkillID,
	})
	oshi := e.inst(p.Oshi)
	e.pushEffects(&effectContext{player: p, source: oshi}, sk.Effects)
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func removeID(ids *[]string, id string) {
	for i, v := range *ids {
		if v == id {
			*ids = append((*ids)[:i], (*ids)[i+1:]...)
			return
		}
	}
}
