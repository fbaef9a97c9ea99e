package engine

import (
	"holocardserver/internal/cards"
	"holocardserver/internal/state"
)

// artContext tracks one art from declaration to resolution. Boost
// effects mutate power before the art lands.
type artContext struct {
	performer *state.Instance
	art       *cards.Art
	targetID  string
	power     int
}

type legalArt struct {
	performerID string
	artID       string
	power       int
	targets     []string
}

// performanceDecision advertises the usable arts, or ends the turn when
// none remain.
func (e *Engine) performanceDecision() {
	if e.gameOver {
		return
	}
	p := e.players[e.activeIdx]
	arts := e.legalArts(p)
	if len(arts) == 0 {
		e.endTurn()
		return
	}

	available := make([]map[string]any, 0, len(arts)+1)
	for _, a := range arts {
		available = append(available, map[string]any{
			"action_type":   ActionPerformanceStepUseArt,
			"performer_id":  a.performerID,
			"art_id":        a.artID,
			"power":         a.power,
			"valid_targets": a.targets,
		})
	}
	available = append(available, map[string]any{
		"action_type": ActionPerformanceStepEndTurn,
	})
	e.emit(EventDecisionPerformanceStep, map[string]any{
		"active_player":     p.ID,
		"available_actions": available,
	})
	e.decision = &decision{
		typ:      EventDecisionPerformanceStep,
		playerID: p.ID,
		actions:  []string{ActionPerformanceStepUseArt, ActionPerformanceStepEndTurn},
		handle: func(action string, data map[string]any) string {
			if action == ActionPerformanceStepEndTurn {
				e.push(e.endTurn)
				return ""
			}
			return e.doUseArt(p, data)
		},
	}
}

// legalArts lists every (performer, art) the active player can still use:
// center and collab holomem that are not resting, did not bloom this
// turn, have not used that art, can pay its cheer cost, and have a
// target on the opponent's center or collab.
func (e *Engine) legalArts(p *state.Player) []legalArt {
	opp := e.opponentOf(p)
	targets := append(append([]string{}, opp.Center...), opp.Collab...)
	if len(targets) == 0 {
		return nil
	}
	var out []legalArt
	performers := append(append([]string{}, p.Center...), p.Collab...)
	for _, id := range performers {
		in := e.inst(id)
		if in.Resting || in.BloomedThisTurn {
			continue
		}
		for i := range in.Def.Arts {
			art := &in.Def.Arts[i]
			if in.UsedArt(art.ArtID) || !e.canPayArtCost(in, art.Cost) {
				continue
			}
			out = append(out, legalArt{
				performerID: id,
				artID:       art.ArtID,
				power:       art.Power,
				targets:     append([]string{}, targets...),
			})
		}
	}
	return out
}

// canPayArtCost checks the attached cheer against a color cost; "any"
// slots are satisfied by whatever remains after the specific colors.
func (e *Engine) canPayArtCost(in *state.Instance, cost map[string]int) bool {
	counts := map[string]int{}
	for _, id := range in.AttachedCheer {
		def := e.inst(id).Def
		if len(def.Colors) > 0 {
			counts[def.Colors[0]]++
		}
	}
	total := len(in.AttachedCheer)
	specific := 0
	for color, need := range cost {
		if color == "any" {
			continue
		}
		if counts[color] < need {
			return false
		}
		specific += need
	}
	return total-specific >= cost["any"]
}

func (e *Engine) doUseArt(p *state.Player, data map[string]any) string {
	performerID := asString(data["performer_id"])
	artID := asString(data["art_id"])
	targetID := asString(data["target_id"])

	var chosen *legalArt
	for _, a := range e.legalArts(p) {
		if a.performerID == performerID && a.artID == artID {
			la := a
			chosen = &la
			break
		}
	}
	if chosen == nil || !containsString(chosen.targets, targetID) {
		return "invalid_art"
	}

	performer := e.inst(performerID)
	art := performer.Def.Art(artID)
	performer.MarkArtUsed(artID)
	ctx := &artContext{
		performer: performer,
		art:       art,
		targetID:  targetID,
		power:     art.Power,
	}

	// Resolution order, innermost first: before-art boosts, the art
	// announcement with final power, the target's on-damage triggers,
	// then the art damage itself.
	e.push(e.performanceDecision)
	e.push(func() { e.applyArtDamage(ctx) })
	e.push(func() { e.onDamageTriggers(ctx) })
	e.push(func() { e.announceArt(p, ctx) })
	e.push(func() { e.beforeArtEffects(p, ctx) })
	return ""
}

func (e *Engine) beforeArtEffects(p *state.Player, ctx *artContext) {
	for _, id := range ctx.performer.AttachedSupport {
		att := e.inst(id)
		fx := effectsWithTiming(att.Def.AttachEffects, cards.TimingBeforeArt)
		if len(fx) > 0 {
			e.pushEffects(&effectContext{
				player: p,
				source: att,
				holder: ctx.performer,
				art:    ctx,
			}, fx)
		}
	}
	fx := effectsWithTiming(ctx.art.Effects, cards.TimingBeforeArt)
	if len(fx) > 0 {
		e.pushEffects(&effectContext{
			player: p,
			source: ctx.performer,
			art:    ctx,
		}, fx)
	}
}

func (e *Engine) announceArt(p *state.Player, ctx *artContext) {
	e.emit(EventPerformArt, map[string]any{
		"player_id":    p.ID,
		"performer_id": ctx.performer.GameCardID,
		"art_id":       ctx.art.ArtID,
		"target_id":    ctx.targetID,
		"power":        ctx.power,
	})
}

// onDamageTriggers fires the target's attached-support revenge effects.
// They resolve completely, downs and all, before the art damage lands.
func (e *Engine) onDamageTriggers(ctx *artContext) {
	target := e.inst(ctx.targetID)
	owner, _ := e.playerByID(target.Owner)
	if owner == nil || !e.onStage(owner, ctx.targetID) {
		return
	}
	for _, id := range target.AttachedSupport {
		att := e.inst(id)
		fx := effectsWithTiming(att.Def.AttachEffects, cards.TimingOnDamage)
		if len(fx) > 0 {
			e.pushEffects(&effectContext{
				player:   owner,
				source:   att,
				holder:   target,
				attacker: ctx.performer,
			}, fx)
		}
	}
}

func (e *Engine) applyArtDamage(ctx *artContext) {
	target := e.inst(ctx.targetID)
	e.dealDamage(target, ctx.power, false)
}

// dealDamage applies damage to a staged holomem and resolves the down if
// it dies. A target already off stage absorbs nothing.
func (e *Engine) dealDamage(target *state.Instance, amount int, special bool) {
	owner, _ := e.playerByID(target.Owner)
	if owner == nil || !e.onStage(owner, target.GameCardID) {
		return
	}
	target.Damage += amount
	died := target.Damage >= target.Def.HP

	lifeLost := 0
	gameOver := false
	if died {
		lifeLost = target.Def.DownLife()
		if lifeLost >= len(owner.Life) {
			lifeLost = len(owner.Life)
			gameOver = true
		}
		if len(owner.Stage()) == 1 {
			gameOver = true
		}
	}
	e.emit(EventDamageDealt, map[string]any{
		"target_id":           target.GameCardID,
		"target_player":       owner.ID,
		"damage":              amount,
		"special":             special,
		"died":                died,
		"game_over":           gameOver,
		"life_lost":           lifeLost,
		"life_loss_prevented": false,
	})
	if died {
		e.downHolomem(owner, target, lifeLost)
	}
}

// downHolomem archives a downed holomem with everything attached, takes
// the life loss and, if the game continues, asks the owner to distribute
// the detached life cheer.
func (e *Engine) downHolomem(owner *state.Player, target *state.Instance, lifeLost int) {
	e.emit(EventDownedHolomemBefore, map[string]any{
		"target_id":     target.GameCardID,
		"target_player": owner.ID,
	})

	slot := owner.RemoveFromStage(target.GameCardID)
	for _, id := range target.AttachedCheer {
		owner.ToArchive(id)
	}
	for _, id := range target.AttachedSupport {
		owner.ToArchive(id)
	}
	for _, id := range target.BloomedFrom {
		owner.ToArchive(id)
	}
	target.AttachedCheer = nil
	target.AttachedSupport = nil
	target.BloomedFrom = nil
	owner.ToArchive(target.GameCardID)

	noStage := len(owner.Stage()) == 0
	lifeOut := lifeLost >= len(owner.Life)
	e.emit(EventDownedHolomem, map[string]any{
		"target_id":     target.GameCardID,
		"target_player": owner.ID,
		"card_id":       target.Def.CardID,
		"from_zone":     slot,
		"life_lost":     lifeLost,
		"game_over":     noStage || lifeOut,
	})

	winner := e.opponentOf(owner).ID
	if lifeOut {
		owner.Life = owner.Life[lifeLost:]
		e.endGame(winner, ReasonLifeZero)
		return
	}
	if noStage {
		e.endGame(winner, ReasonNoHolomem)
		return
	}
	if lifeLost > 0 {
		e.sendLifeCheer(owner, lifeLost)
	}
}

// sendLifeCheer detaches the lost life cards and asks their owner to
// place each on a surviving holomem. This decision belongs to the downed
// player even mid-opponent-turn.
func (e *Engine) sendLifeCheer(owner *state.Player, count int) {
	fromIDs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, ok := owner.TakeTopLife()
		if !ok {
			break
		}
		fromIDs = append(fromIDs, id)
	}
	targets := owner.Stage()
	e.emit(EventDecisionSendCheer, map[string]any{
		"effect_player_id": owner.ID,
		"amount_min":       len(fromIDs),
		"amount_max":       len(fromIDs),
		"from_zone":        state.ZoneLife,
		"to_zone":          state.ZoneHolomem,
		"from_options":     fromIDs,
		"to_options":       targets,
	})
	e.decision = &decision{
		typ:      EventDecisionSendCheer,
		playerID: owner.ID,
		actions:  []string{ActionEffectMoveCheer},
		handle: func(_ string, data map[string]any) string {
			placements := asPlacements(data["placements"])
			if len(placements) != len(fromIDs) {
				return "invalid_placements"
			}
			for _, id := range fromIDs {
				target, ok := placements[id]
				if !ok || !containsString(targets, target) || !e.onStage(owner, target) {
					return "invalid_placements"
				}
			}
			for _, id := range fromIDs {
				e.attachCheer(owner, id, state.ZoneLife, placements[id])
			}
			return ""
		},
	}
}

func effectsWithTiming(fx []cards.Effect, timing string) []cards.Effect {
	var out []cards.Effect
	for _, f := range fx {
		if f.Timing == timing {
			out = append(out, f)
		}
	}
	return out
}
