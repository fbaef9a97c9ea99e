package state

import (
	"fmt"

	"holocardserver/internal/cards"
)

// UnknownCardID is the sentinel sent in place of a card identity the
// recipient is not allowed to see.
const UnknownCardID = "UNKNOWN_CARD_ID"

// Zone names as they appear on the wire.
const (
	ZoneDeck      = "deck"
	ZoneHand      = "hand"
	ZoneArchive   = "archive"
	ZoneLife      = "life"
	ZoneCheerDeck = "cheer_deck"
	ZoneHolopower = "holopower"
	ZoneCenter    = "center"
	ZoneCollab    = "collab"
	ZoneBackstage = "backstage"
	ZoneFloating  = "floating"
	ZoneHolomem   = "holomem"
)

// Instance is one card in a match: an immutable definition plus the
// mutable per-match fields. Zones and attachments reference instances by
// GameCardID only; the Table resolves ids to objects.
type Instance struct {
	GameCardID string
	Def        *cards.Definition
	Owner      string // player id

	Damage  int
	Resting bool

	AttachedCheer   []string // game card ids, attachment order
	AttachedSupport []string
	BloomedFrom     []string // underlying holomem stack, bottom to top

	BloomedThisTurn  bool
	PlayedThisTurn   bool
	UsedArtsThisTurn map[string]bool
}

// ResetTurnFlags clears the per-turn instance flags at the owner's reset.
func (in *Instance) ResetTurnFlags() {
	in.BloomedThisTurn = false
	in.PlayedThisTurn = false
	in.UsedArtsThisTurn = nil
}

func (in *Instance) UsedArt(artID string) bool {
	return in.UsedArtsThisTurn[artID]
}

func (in *Instance) MarkArtUsed(artID string) {
	if in.UsedArtsThisTurn == nil {
		in.UsedArtsThisTurn = make(map[string]bool)
	}
	in.UsedArtsThisTurn[artID] = true
}

// Table is the per-match object table: every instance ever created,
// keyed by its stable GameCardID.
type Table struct {
	cards  map[string]*Instance
	nextID int
}

func NewTable() *Table {
	return &Table{cards: make(map[string]*Instance), nextID: 1}
}

// NewInstance mints a fresh instance of def owned by owner. GameCardIDs
// are unique within the match and stable once assigned. Ids derive from
// the owner, not the definition, so a hidden card's id reveals nothing.
func (t *Table) NewInstance(def *cards.Definition, owner string) *Instance {
	id := fmt.Sprintf("%s_%d", owner, t.nextID)
	t.nextID++
	in := &Instance{GameCardID: id, Def: def, Owner: owner}
	t.cards[id] = in
	return in
}

// Get resolves a game card id, or nil when it was never minted.
func (t *Table) Get(id string) *Instance {
	return t.cards[id]
}

// Count reports how many instances exist in the match.
func (t *Table) Count() int {
	return len(t.cards)
}
