package cards

const (
	requiredDeckCount  = 50
	requiredCheerCount = 20
	maxAnyCardCount    = 4
)

// ValidateDeck checks a submitted (oshi, main deck, cheer deck) triple.
// Pass/fail only; callers report a single "invalid deck" error.
func (db *Database) ValidateDeck(oshiID string, deck map[string]int, cheerDeck map[string]int) bool {
	oshi := db.Card(oshiID)
	if oshi == nil || oshi.CardType != TypeOshi {
		return false
	}

	deckCount := 0
	for cardID, count := range deck {
		def := db.Card(cardID)
		if def == nil || !deckTypeAllowed(def.CardType) {
			return false
		}
		limit := maxAnyCardCount
		if def.SpecialDeckLimit != nil {
			limit = *def.SpecialDeckLimit
		}
		if count < 1 || count > limit {
			return false
		}
		deckCount += count
	}
	if deckCount != requiredDeckCount {
		return false
	}

	cheerCount := 0
	for cardID, count := range cheerDeck {
		def := db.Card(cardID)
		if def == nil || def.CardType != TypeCheer {
			return false
		}
		if count < 1 {
			return false
		}
		cheerCount += count
	}
	return cheerCount == requiredCheerCount
}

func deckTypeAllowed(t CardType) bool {
	switch t {
	case TypeHolomemDebut, TypeHolomemBloom, TypeHolomemSpot, TypeSupport:
		return true
	}
	return false
}
