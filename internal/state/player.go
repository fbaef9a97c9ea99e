package state

// Player holds one player's half of a match: every zone plus the
// per-turn flags. Zones store game card ids; the match Table resolves
// them to instances.
type Player struct {
	ID string

	Oshi      string   // single oshi instance, never moves
	Deck      []string // index 0 = top; hidden
	Hand      []string // hidden from opponent
	Archive   []string // index 0 = most recent; public
	Life      []string // index 0 = top; face-down cheer
	CheerDeck []string // index 0 = top; hidden
	Holopower []string // index 0 = top; face-down

	Center    []string // 0 or 1
	Collab    []string // 0 or 1
	Backstage []string // up to 5

	MulliganCount int
	PlacementDone bool
	TurnsTaken    int

	CollabedThisTurn    bool
	BatonPassedThisTurn bool
	UsedLimitedThisTurn bool
	OshiSkillsUsedTurn  map[string]bool
	OshiSkillsUsedGame  map[string]bool

	Connected bool
}

func NewPlayer(id string) *Player {
	return &Player{
		ID:                 id,
		OshiSkillsUsedTurn: make(map[string]bool),
		OshiSkillsUsedGame: make(map[string]bool),
		Connected:          true,
	}
}

// ResetTurnFlags clears the player's per-turn flags at their reset step.
func (p *Player) ResetTurnFlags() {
	p.CollabedThisTurn = false
	p.BatonPassedThisTurn = false
	p.UsedLimitedThisTurn = false
	p.OshiSkillsUsedTurn = make(map[string]bool)
}

// Stage returns the on-stage holomem ids in scan order: center, collab,
// then backstage left to right.
func (p *Player) Stage() []string {
	out := make([]string, 0, 7)
	out = append(out, p.Center...)
	out = append(out, p.Collab...)
	out = append(out, p.Backstage...)
	return out
}

// InHand reports whether the id is in the player's hand.
func (p *Player) InHand(id string) bool {
	return contains(p.Hand, id)
}

// RemoveFromHand drops id from the hand; reports whether it was there.
func (p *Player) RemoveFromHand(id string) bool {
	return remove(&p.Hand, id)
}

// RemoveFromBackstage drops id from backstage; reports whether it was there.
func (p *Player) RemoveFromBackstage(id string) bool {
	return remove(&p.Backstage, id)
}

// RemoveFromStage drops id from whichever stage slot holds it and names
// the slot it came from ("" when absent).
func (p *Player) RemoveFromStage(id string) string {
	if remove(&p.Center, id) {
		return ZoneCenter
	}
	if remove(&p.Collab, id) {
		return ZoneCollab
	}
	if remove(&p.Backstage, id) {
		return ZoneBackstage
	}
	return ""
}

// ReplaceOnStage swaps oldID for newID in place, preserving the slot and
// position. Used by bloom.
func (p *Player) ReplaceOnStage(oldID, newID string) bool {
	for _, zone := range []*[]string{&p.Center, &p.Collab, &p.Backstage} {
		for i, id := range *zone {
			if id == oldID {
				(*zone)[i] = newID
				return true
			}
		}
	}
	return false
}

// DrawOne pops the top of the deck; ok is false on an empty deck.
func (p *Player) DrawOne() (string, bool) {
	if len(p.Deck) == 0 {
		return "", false
	}
	top := p.Deck[0]
	p.Deck = p.Deck[1:]
	p.Hand = append(p.Hand, top)
	return top, true
}

// ToArchive prepends id to the archive (newest first).
func (p *Player) ToArchive(id string) {
	p.Archive = append([]string{id}, p.Archive...)
}

// TakeTopCheer pops the top of the cheer deck; ok is false when empty.
func (p *Player) TakeTopCheer() (string, bool) {
	if len(p.CheerDeck) == 0 {
		return "", false
	}
	top := p.CheerDeck[0]
	p.CheerDeck = p.CheerDeck[1:]
	return top, true
}

// TakeTopLife pops the top life card; ok is false when life is empty.
func (p *Player) TakeTopLife() (string, bool) {
	if len(p.Life) == 0 {
		return "", false
	}
	top := p.Life[0]
	p.Life = p.Life[1:]
	return top, true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids *[]string, id string) bool {
	for i, v := range *ids {
		if v == id {
			*ids = append((*ids)[:i], (*ids)[i+1:]...)
			return true
		}
	}
	return false
}
