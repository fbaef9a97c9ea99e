package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	db, err := Load("../../decks/card_definitions.json")
	require.NoError(t, err)
	return db
}

func validDeck() (string, map[string]int, map[string]int) {
	deck := map[string]int{
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
	}
	cheer := map[string]int{
		"hY01-001": 10,
		"hY02-001": 4,
		"hY03-001": 3,
		"hY04-001": 3,
	}
	return "hBP01-002", deck, cheer
}

func TestLoadManifest(t *testing.T) {
	db := testDB(t)
	require.NotZero(t, db.Len())

	reine := db.Card("hBP02-020")
	require.NotNil(t, reine)
	assert.Equal(t, 160, reine.HP)
	assert.True(t, reine.IsHolomem())
	require.NotNil(t, reine.Art("royalhalusleepover"))
	assert.Equal(t, 50, reine.Art("royalhalusleepover").Power)

	oshi := db.Card("hBP01-002")
	require.NotNil(t, oshi)
	require.NotNil(t, oshi.Skill("destinysong"))
	assert.Equal(t, 2, oshi.Skill("destinysong").Cost)

	assert.Nil(t, db.Card("hXX99-999"))
}

func TestParseRejectsUnknownEffectVerb(t *testing.T) {
	_, err := Parse([]byte(`[
		{
			"card_id": "hTT01-001",
			"card_type": "support",
			"support_effects": [{"effect_type": "summon_dragon"}]
		}
	]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summon_dragon")
}

func TestParseRejectsUnknownCondition(t *testing.T) {
	_, err := Parse([]byte(`[
		{
			"card_id": "hTT01-001",
			"card_type": "support",
			"support_effects": [
				{"effect_type": "roll_die", "conditions": [{"condition": "moon_is_full"}]}
			]
		}
	]`))
	require.Error(t, err)
}

func TestParseRejectsUnknownRemainingAction(t *testing.T) {
	_, err := Parse([]byte(`[
		{
			"card_id": "hTT01-001",
			"card_type": "support",
			"support_effects": [
				{
					"effect_type": "choose_cards",
					"from_zone": "archive",
					"to_zone": "hand",
					"amount_min": 1,
					"amount_max": 1,
					"remaining_cards_action": "shuffle_into_deck"
				}
			]
		}
	]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shuffle_into_deck")
}

func TestParseRejectsMoveCardWithoutZones(t *testing.T) {
	_, err := Parse([]byte(`[
		{
			"card_id": "hTT01-001",
			"card_type": "support",
			"support_effects": [{"effect_type": "move_card", "from_zone": "deck"}]
		}
	]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "move_card")
}

func TestParseRejectsDuplicateCardID(t *testing.T) {
	_, err := Parse([]byte(`[
		{"card_id": "hTT01-001", "card_type": "cheer", "colors": ["white"]},
		{"card_id": "hTT01-001", "card_type": "cheer", "colors": ["white"]}
	]`))
	require.Error(t, err)
}

func TestValidateDeckAcceptsLegalDeck(t *testing.T) {
	db := testDB(t)
	oshi, deck, cheer := validDeck()
	assert.True(t, db.ValidateDeck(oshi, deck, cheer))
}

func TestValidateDeckRejections(t *testing.T) {
	db := testDB(t)

	t.Run("oshi must be an oshi card", func(t *testing.T) {
		_, deck, cheer := validDeck()
		assert.False(t, db.ValidateDeck("hSD01-003", deck, cheer))
		assert.False(t, db.ValidateDeck("nope", deck, cheer))
	})

	t.Run("deck must hold exactly fifty", func(t *testing.T) {
		oshi, deck, cheer := validDeck()
		deck["hSD01-008"] = 2
		assert.False(t, db.ValidateDeck(oshi, deck, cheer))
		delete(deck, "hSD01-008")
		delete(deck, "hSD01-011")
		assert.False(t, db.ValidateDeck(oshi, deck, cheer))
	})

	t.Run("at most four copies", func(t *testing.T) {
		oshi, deck, cheer := validDeck()
		deck["hSD01-003"] = 5
		deck["hSD01-004"] = 3
		assert.False(t, db.ValidateDeck(oshi, deck, cheer))
	})

	t.Run("no oshi or cheer in the main deck", func(t *testing.T) {
		oshi, deck, cheer := validDeck()
		delete(deck, "hSD01-011")
		deck["hY01-001"] = 1
		assert.False(t, db.ValidateDeck(oshi, deck, cheer))
	})

	t.Run("cheer deck must hold exactly twenty cheer", func(t *testing.T) {
		oshi, deck, cheer := validDeck()
		cheer["hY01-001"] = 9
		assert.False(t, db.ValidateDeck(oshi, deck, cheer))
		cheer["hY01-001"] = 11
		assert.False(t, db.ValidateDeck(oshi, deck, cheer))
	})

	t.Run("cheer deck takes only cheer", func(t *testing.T) {
		oshi, deck, cheer := validDeck()
		cheer["hY01-001"] = 9
		cheer["hSD01-003"] = 1
		assert.False(t, db.ValidateDeck(oshi, deck, cheer))
	})
}

func TestSpecialDeckLimitOverridesFour(t *testing.T) {
	db, err := Parse([]byte(`[
		{"card_id": "hTT01-000", "card_type": "oshi", "life": 5},
		{"card_id": "hTT01-001", "card_type": "support", "special_deck_limit": 50},
		{"card_id": "hTT01-002", "card_type": "cheer", "colors": ["white"]}
	]`))
	require.NoError(t, err)
	assert.True(t, db.ValidateDeck("hTT01-000",
		map[string]int{"hTT01-001": 50},
		map[string]int{"hTT01-002": 20}))
}
