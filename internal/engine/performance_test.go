package engine

import (
	"testing"
)

// setupDuel puts chosen holomem in both centers on the active player's
// third turn, with the opponent backstage cleared down to one survivor
// so down resolution has a target.
func setupDuel(t *testing.T, seed int64, activeCenter, otherCenter string) (*testGame, string, string) {
	g := newTestGame(t, seed)
	g.advanceToTurn3()
	p := g.e.Player(g.active)
	o := g.e.Player(g.other)
	attackerID := g.putCenter(p, activeCenter)
	defenderID := g.putCenter(o, otherCenter)
	survivor := g.putBackstage(o, "hSD01-004")
	o.Backstage = []string{survivor}
	o.Collab = nil
	return g, attackerID, defenderID
}

func TestArtNeedsMatchingCheer(t *testing.T) {
	g, attackerID, _ := setupDuel(t, 20, "hBP02-020", "hSD01-003")
	p := g.e.Player(g.active)

	// One white cheer cannot cover green + any.
	g.attachCheerTo(p, attackerID, "hY01-001")
	if arts := g.e.legalArts(p); len(arts) != 0 {
		t.Fatalf("art usable without color cost paid: %v", arts)
	}
	g.attachCheerTo(p, attackerID, "hY02-001")
	arts := g.e.legalArts(p)
	if len(arts) != 1 || arts[0].artID != "royalhalusleepover" {
		t.Fatalf("arts = %v, want royalhalusleepover", arts)
	}
}

func TestPerformArtThenAutoEndTurn(t *testing.T) {
	g, attackerID, defenderID := setupDuel(t, 21, "hBP02-020", "hSD01-003")
	e := g.e
	p := e.Player(g.active)
	g.attachCheerTo(p, attackerID, "hY02-001")
	g.attachCheerTo(p, attackerID, "hY01-001")

	e.HandleAction(g.active, ActionMainStepBeginPerformance, nil)
	g.mustDecision(EventDecisionPerformanceStep, g.active)

	mark := g.mark()
	e.HandleAction(g.active, ActionPerformanceStepUseArt, map[string]any{
		"performer_id": attackerID,
		"art_id":       "royalhalusleepover",
		"target_id":    defenderID,
	})

	perform := g.lastEventFor(g.active, EventPerformArt)
	if attrInt(t, perform, "power") != 50 {
		t.Fatalf("power = %d, want 50", attrInt(t, perform, "power"))
	}
	dmg := g.lastEventFor(g.active, EventDamageDealt)
	if attrInt(t, dmg, "damage") != 50 || attrBool(t, dmg, "died") || attrBool(t, dmg, "special") {
		t.Fatalf("unexpected damage payload: %v", dmg.Payload)
	}
	if e.inst(defenderID).Damage != 50 {
		t.Fatalf("defender damage = %d, want 50", e.inst(defenderID).Damage)
	}

	// The only art is spent, so the performance step ends the turn on
	// its own.
	requireTypes(t, g.typesFor(g.active, mark),
		EventPerformArt,
		EventDamageDealt,
		EventEndTurn,
		EventStartTurn,
		EventResetStepActivate,
		EventResetStepCollab,
		EventDraw,
		EventCheerStep,
	)
	g.mustDecision(EventCheerStep, g.other)
}

func TestUpaoBoostsHolderArt(t *testing.T) {
	g, attackerID, defenderID := setupDuel(t, 22, "hBP01-010", "hSD01-003")
	e := g.e
	p := e.Player(g.active)
	g.attachCheerTo(p, attackerID, "hY01-001")
	upaoID := g.takeFromDeck(p, "hBP01-116")
	e.inst(attackerID).AttachedSupport = append(e.inst(attackerID).AttachedSupport, upaoID)

	e.HandleAction(g.active, ActionMainStepBeginPerformance, nil)
	mark := g.mark()
	e.HandleAction(g.active, ActionPerformanceStepUseArt, map[string]any{
		"performer_id": attackerID,
		"art_id":       "imoffnow",
		"target_id":    defenderID,
	})

	// The boost lands before the art announcement, so the announced
	// power already includes it.
	types := g.typesFor(g.active, mark)
	if types[0] != EventBoostStat || types[1] != EventPerformArt {
		t.Fatalf("expected boost then art, got %v", types)
	}
	boost := g.lastEventFor(g.active, EventBoostStat)
	if attrInt(t, boost, "amount") != 10 {
		t.Fatalf("boost amount = %d, want 10", attrInt(t, boost, "amount"))
	}
	perform := g.lastEventFor(g.active, EventPerformArt)
	if attrInt(t, perform, "power") != 30 {
		t.Fatalf("power = %d, want 20+10", attrInt(t, perform, "power"))
	}
	if e.inst(defenderID).Damage != 30 {
		t.Fatalf("defender damage = %d, want 30", e.inst(defenderID).Damage)
	}
}

// TestUpaoRevengeResolvesBeforeArtDamage pins the order for on-damage
// attachments on the defender: the revenge damage is dealt, and fully
// resolved, before the art damage lands.
func TestUpaoRevengeResolvesBeforeArtDamage(t *testing.T) {
	g, attackerID, defenderID := setupDuel(t, 23, "hSD01-003", "hBP01-010")
	e := g.e
	p := e.Player(g.active)
	o := e.Player(g.other)
	g.attachCheerTo(p, attackerID, "hY01-001")
	upaoID := g.takeFromDeck(o, "hBP01-116")
	e.inst(defenderID).AttachedSupport = append(e.inst(defenderID).AttachedSupport, upaoID)

	e.HandleAction(g.active, ActionMainStepBeginPerformance, nil)
	mark := g.mark()
	e.HandleAction(g.active, ActionPerformanceStepUseArt, map[string]any{
		"performer_id": attackerID,
		"art_id":       "nunnun",
		"target_id":    defenderID,
	})

	var damages []Event
	for _, ev := range g.eventsFor(g.active, mark) {
		if ev.Type == EventDamageDealt {
			damages = append(damages, ev)
		}
	}
	if len(damages) != 2 {
		t.Fatalf("damage events = %d, want 2 (revenge then art)", len(damages))
	}
	revenge, art := damages[0], damages[1]
	if !attrBool(t, revenge, "special") || attrInt(t, revenge, "damage") != 20 {
		t.Fatalf("revenge payload: %v", revenge.Payload)
	}
	if attrString(t, revenge, "target_id") != attackerID {
		t.Fatalf("revenge target = %s, want attacker %s", attrString(t, revenge, "target_id"), attackerID)
	}
	if attrBool(t, art, "special") || attrInt(t, art, "damage") != 30 {
		t.Fatalf("art damage payload: %v", art.Payload)
	}
	if attrString(t, art, "target_id") != defenderID {
		t.Fatalf("art target = %s, want defender %s", attrString(t, art, "target_id"), defenderID)
	}
	if e.inst(attackerID).Damage != 20 || e.inst(defenderID).Damage != 30 {
		t.Fatalf("damage totals attacker=%d defender=%d, want 20/30",
			e.inst(attackerID).Damage, e.inst(defenderID).Damage)
	}
	// Upao does nothing for a non-kanata holder.
	if boost := g.typesFor(g.active, mark)[0]; boost == EventBoostStat {
		t.Fatal("defender's upao boosted the attacker's art")
	}
}

// When revenge damage downs the attacker, the attacker's life payout
// resolves while the art damage is still pending; the deferred damage
// then lands and the performance step continues from the collab.
func TestRevengeDownPaysLifeBeforeArtDamage(t *testing.T) {
	g, attackerID, defenderID := setupDuel(t, 30, "hSD01-003", "hBP01-010")
	e := g.e
	p := e.Player(g.active)
	g.attachCheerTo(p, attackerID, "hY01-001")
	upaoID := g.takeFromDeck(e.Player(g.other), "hBP01-116")
	e.inst(defenderID).AttachedSupport = append(e.inst(defenderID).AttachedSupport, upaoID)
	e.inst(attackerID).Damage = 40 // the 20 revenge is lethal on 60 hp

	collabID := g.putCollab(p, "hSD01-004")
	g.attachCheerTo(p, collabID, "hY01-001")
	lifeTop := p.Life[0]

	e.HandleAction(g.active, ActionMainStepBeginPerformance, nil)
	e.HandleAction(g.active, ActionPerformanceStepUseArt, map[string]any{
		"performer_id": attackerID,
		"art_id":       "nunnun",
		"target_id":    defenderID,
	})

	// The revenge downed the attacker; its owner pays life while the art
	// damage is still on the stack.
	g.mustDecision(EventDecisionSendCheer, g.active)
	if got := e.inst(defenderID).Damage; got != 0 {
		t.Fatalf("art damage landed before the attacker's down resolved: %d", got)
	}
	if !containsString(p.Archive, attackerID) {
		t.Fatal("downed attacker not archived")
	}
	revenge := g.lastEventFor(g.active, EventDamageDealt)
	if !attrBool(t, revenge, "special") || !attrBool(t, revenge, "died") {
		t.Fatalf("revenge payload: %v", revenge.Payload)
	}

	e.HandleAction(g.active, ActionEffectMoveCheer, map[string]any{
		"placements": map[string]string{lifeTop: collabID},
	})
	if got := e.inst(defenderID).Damage; got != 30 {
		t.Fatalf("deferred art damage = %d, want 30", got)
	}
	// The collab can still perform, so the step stays open.
	g.mustDecision(EventDecisionPerformanceStep, g.active)
}

func TestMarineCollabHitsOpposingCollab(t *testing.T) {
	g := newTestGame(t, 24)
	e := g.e
	p := e.Player(g.active)
	o := e.Player(g.other)

	marineID := g.putBackstage(p, "hBP02-029")
	oppCollabID := g.putCollab(o, "hSD01-004")

	mark := g.mark()
	e.HandleAction(g.active, ActionMainStepCollab, map[string]any{"card_id": marineID})

	dmg := g.lastEventFor(g.active, EventDamageDealt)
	if attrInt(t, dmg, "damage") != 20 || !attrBool(t, dmg, "special") {
		t.Fatalf("collab damage payload: %v", dmg.Payload)
	}
	if attrString(t, dmg, "target_id") != oppCollabID {
		t.Fatalf("target = %s, want %s", attrString(t, dmg, "target_id"), oppCollabID)
	}
	if e.inst(oppCollabID).Damage != 20 {
		t.Fatalf("collab target damage = %d, want 20", e.inst(oppCollabID).Damage)
	}
	types := g.typesFor(g.active, mark)
	if types[0] != EventCollab {
		t.Fatalf("expected Collab first, got %v", types)
	}
	g.mustMainStep(g.active)
}

func TestMarineCollabWithoutTargetDoesNothing(t *testing.T) {
	g := newTestGame(t, 25)
	e := g.e
	p := e.Player(g.active)
	o := e.Player(g.other)
	o.Collab = nil

	marineID := g.putBackstage(p, "hBP02-029")
	mark := g.mark()
	e.HandleAction(g.active, ActionMainStepCollab, map[string]any{"card_id": marineID})
	for _, ev := range g.eventsFor(g.active, mark) {
		if ev.Type == EventDamageDealt {
			t.Fatalf("damage dealt with no opposing collab: %v", ev.Payload)
		}
	}
	g.mustMainStep(g.active)
}

// TestDownPaysLifeToSurvivor walks the full down chain: lethal art,
// down events, life payout decision for the downed player, cheer landing
// on the survivor.
func TestDownPaysLifeToSurvivor(t *testing.T) {
	g, attackerID, defenderID := setupDuel(t, 26, "hSD01-003", "hBP01-010")
	e := g.e
	p := e.Player(g.active)
	o := e.Player(g.other)
	g.attachCheerTo(p, attackerID, "hY01-001")
	e.inst(defenderID).Damage = 40 // 30 more is lethal on 60 hp
	survivorID := o.Backstage[0]
	lifeTop := o.Life[0]

	e.HandleAction(g.active, ActionMainStepBeginPerformance, nil)
	mark := g.mark()
	e.HandleAction(g.active, ActionPerformanceStepUseArt, map[string]any{
		"performer_id": attackerID,
		"art_id":       "nunnun",
		"target_id":    defenderID,
	})

	requireTypes(t, g.typesFor(g.other, mark),
		EventPerformArt,
		EventDamageDealt,
		EventDownedHolomemBefore,
		EventDownedHolomem,
		EventDecisionSendCheer,
	)
	dmg := g.lastEventFor(g.other, EventDamageDealt)
	if !attrBool(t, dmg, "died") || attrInt(t, dmg, "life_lost") != 1 {
		t.Fatalf("lethal damage payload: %v", dmg.Payload)
	}
	down := g.lastEventFor(g.other, EventDownedHolomem)
	if attrInt(t, down, "life_lost") != 1 || attrBool(t, down, "game_over") {
		t.Fatalf("down payload: %v", down.Payload)
	}
	if o.Archive[0] != defenderID {
		t.Fatalf("downed holomem not on top of archive: %v", o.Archive)
	}

	// The life payout belongs to the downed player.
	g.mustDecision(EventDecisionSendCheer, g.other)
	e.HandleAction(g.other, ActionEffectMoveCheer, map[string]any{
		"placements": map[string]string{lifeTop: survivorID},
	})
	if len(o.Life) != 4 {
		t.Fatalf("life = %d, want 4", len(o.Life))
	}
	if !containsString(e.inst(survivorID).AttachedCheer, lifeTop) {
		t.Fatal("life cheer not attached to survivor")
	}
	// The attacker has no art left, so the interrupted performance flow
	// resumes and rolls straight into the end-turn chain.
	g.mustDecision(EventCheerStep, g.other)
}

func TestDownToZeroLifeEndsGame(t *testing.T) {
	g, attackerID, defenderID := setupDuel(t, 27, "hSD01-003", "hBP01-010")
	e := g.e
	p := e.Player(g.active)
	o := e.Player(g.other)
	g.attachCheerTo(p, attackerID, "hY01-001")
	e.inst(defenderID).Damage = 50
	o.Life = o.Life[:1]

	e.HandleAction(g.active, ActionMainStepBeginPerformance, nil)
	e.HandleAction(g.active, ActionPerformanceStepUseArt, map[string]any{
		"performer_id": attackerID,
		"art_id":       "nunnun",
		"target_id":    defenderID,
	})
	if !e.IsGameOver() || e.WinnerID() != g.active {
		t.Fatalf("game over=%v winner=%s", e.IsGameOver(), e.WinnerID())
	}
	ev := g.lastEventFor(g.active, EventGameOver)
	if attrString(t, ev, "reason") != ReasonLifeZero {
		t.Fatalf("reason = %s, want %s", attrString(t, ev, "reason"), ReasonLifeZero)
	}
}

func TestDownLastHolomemEndsGame(t *testing.T) {
	g, attackerID, defenderID := setupDuel(t, 28, "hSD01-003", "hBP01-010")
	e := g.e
	p := e.Player(g.active)
	o := e.Player(g.other)
	g.attachCheerTo(p, attackerID, "hY01-001")
	e.inst(defenderID).Damage = 50
	o.Backstage = nil

	e.HandleAction(g.active, ActionMainStepBeginPerformance, nil)
	e.HandleAction(g.active, ActionPerformanceStepUseArt, map[string]any{
		"performer_id": attackerID,
		"art_id":       "nunnun",
		"target_id":    defenderID,
	})
	if !e.IsGameOver() || e.WinnerID() != g.active {
		t.Fatalf("game over=%v winner=%s", e.IsGameOver(), e.WinnerID())
	}
	ev := g.lastEventFor(g.other, EventGameOver)
	if attrString(t, ev, "reason") != ReasonNoHolomem {
		t.Fatalf("reason = %s, want %s", attrString(t, ev, "reason"), ReasonNoHolomem)
	}
}

func TestBloomedHolomemCannotPerform(t *testing.T) {
	g, attackerID, _ := setupDuel(t, 29, "hSD01-003", "hBP01-010")
	e := g.e
	p := e.Player(g.active)
	g.attachCheerTo(p, attackerID, "hY01-001")
	g.attachCheerTo(p, attackerID, "hY01-001")
	bloomID := g.toHand(p, "hSD01-005")

	e.HandleAction(g.active, ActionMainStepBloom, map[string]any{
		"card_id":   bloomID,
		"target_id": attackerID,
	})
	if arts := e.legalArts(p); len(arts) != 0 {
		t.Fatalf("bloomed-this-turn holomem can still perform: %v", arts)
	}
}
