package cards

import (
	"fmt"
)

type CardType string

const (
	TypeOshi         CardType = "oshi"
	TypeHolomemDebut CardType = "holomem_debut"
	TypeHolomemBloom CardType = "holomem_bloom"
	TypeHolomemSpot  CardType = "holomem_spot"
	TypeSupport      CardType = "support"
	TypeCheer        CardType = "cheer"
)

// EffectType is the closed verb set of the card-effect language. Anything
// else in the manifest is a load-time error.
type EffectType string

const (
	EffectDealDamage             EffectType = "deal_damage"
	EffectBoostStat              EffectType = "boost_stat"
	EffectMoveCard               EffectType = "move_card"
	EffectAttachCard             EffectType = "attach_card"
	EffectSendCheer              EffectType = "send_cheer"
	EffectChooseCards            EffectType = "choose_cards"
	EffectChooseHolomemForEffect EffectType = "choose_holomem_for_effect"
	EffectSwapHolomemToCenter    EffectType = "swap_holomem_to_center"
	EffectMakeChoice             EffectType = "make_choice"
	EffectRollDie                EffectType = "roll_die"
	EffectOshiSkillUse           EffectType = "oshi_skill_use"
)

// Timing values for effects carried by attached supports and arts.
const (
	TimingOnPlay    = "on_play"
	TimingBeforeArt = "before_art"
	TimingOnDamage  = "on_damage"
	TimingOnCollab  = "on_collab"
)

// Dispositions for the cards a choose_cards decision leaves unchosen.
const (
	RemainingNothing    = "nothing"
	RemainingArchive    = "archive"
	RemainingTopDeck    = "top_deck"
	RemainingBottomDeck = "bottom_deck"
)

// Condition gates an effect. Unknown condition names are a load-time error.
type Condition struct {
	Condition string `json:"condition"`
	CardID    string `json:"card_id,omitempty"`
	SkillID   string `json:"skill_id,omitempty"`
	Amount    int    `json:"amount,omitempty"`
	Name      string `json:"name,omitempty"`
}

const (
	CondOpponentHasCollab = "opponent_has_collab"
	CondOshiIs            = "oshi_is"
	CondOshiSkillUnused   = "oshi_skill_unused"
	CondHolopowerAtLeast  = "holopower_at_least"
	CondHolderNameIs      = "holder_name_is"
)

// DieBranch maps an inclusive die-result range to an effect list.
type DieBranch struct {
	From    int      `json:"from"`
	To      int      `json:"to"`
	Effects []Effect `json:"effects"`
}

// Effect is one descriptor in the effect language. Only the fields
// relevant to its verb are populated.
type Effect struct {
	Type   EffectType `json:"effect_type"`
	Timing string     `json:"timing,omitempty"`

	Conditions      []Condition `json:"conditions,omitempty"`
	NegativeEffects []Effect    `json:"negative_condition_effects,omitempty"`

	// deal_damage / boost_stat
	Amount  int    `json:"amount,omitempty"`
	Special bool   `json:"special,omitempty"`
	Target  string `json:"target,omitempty"`

	// send_cheer / choose_cards / move_card
	AmountMin       int    `json:"amount_min,omitempty"`
	AmountMax       int    `json:"amount_max,omitempty"`
	FromZone        string `json:"from_zone,omitempty"`
	ToZone          string `json:"to_zone,omitempty"`
	FromLimitation  string `json:"from_limitation,omitempty"`
	CardTypeFilter  string `json:"card_type_filter,omitempty"`
	RevealChosen    bool   `json:"reveal_chosen,omitempty"`
	RemainingAction string `json:"remaining_cards_action,omitempty"`

	// choose_holomem_for_effect
	ChosenEffects []Effect `json:"chosen_effects,omitempty"`

	// make_choice
	Choices [][]Effect `json:"choices,omitempty"`

	// roll_die
	DieEffects []DieBranch `json:"die_effects,omitempty"`

	// oshi_skill_use
	SkillID string `json:"skill_id,omitempty"`
}

// Art is one named attack on a holomem.
type Art struct {
	ArtID   string         `json:"art_id"`
	Cost    map[string]int `json:"cost"` // color -> count; "any" satisfied last
	Power   int            `json:"power"`
	Effects []Effect       `json:"effects,omitempty"`
}

type SkillLimit string

const (
	LimitOncePerTurn SkillLimit = "once_per_turn"
	LimitOncePerGame SkillLimit = "once_per_game"
)

// OshiSkill is an activatable ability paid in holopower.
type OshiSkill struct {
	SkillID string     `json:"skill_id"`
	Cost    int        `json:"cost"`
	Limit   SkillLimit `json:"limit"`
	Effects []Effect   `json:"effects"`
}

// Definition is one immutable card definition from the manifest.
type Definition struct {
	CardID   string   `json:"card_id"`
	CardType CardType `json:"card_type"`
	Name     string   `json:"name,omitempty"` // talent name, used for bloom matching
	HP       int      `json:"hp,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Colors   []string `json:"colors,omitempty"`

	BloomLevel       int  `json:"bloom_level,omitempty"`
	BatonPassCost    int  `json:"baton_pass_cost,omitempty"`
	DownLifeCost     int  `json:"down_life_cost,omitempty"` // 0 means default 1
	SpecialDeckLimit *int `json:"special_deck_limit,omitempty"`

	Arts          []Art    `json:"arts,omitempty"`
	CollabEffects []Effect `json:"collab_effects,omitempty"` // fire when this holomem collabs

	// Supports
	Limited        bool     `json:"limited,omitempty"`
	SupportEffects []Effect `json:"support_effects,omitempty"`
	AttachEffects  []Effect `json:"attach_effects,omitempty"` // while attached to a holomem

	// Oshi
	Life       int         `json:"life,omitempty"`
	OshiSkills []OshiSkill `json:"oshi_skills,omitempty"`
}

func (d *Definition) IsHolomem() bool {
	switch d.CardType {
	case TypeHolomemDebut, TypeHolomemBloom, TypeHolomemSpot:
		return true
	}
	return false
}

func (d *Definition) Art(artID string) *Art {
	for i := range d.Arts {
		if d.Arts[i].ArtID == artID {
			return &d.Arts[i]
		}
	}
	return nil
}

func (d *Definition) Skill(skillID string) *OshiSkill {
	for i := range d.OshiSkills {
		if d.OshiSkills[i].SkillID == skillID {
			return &d.OshiSkills[i]
		}
	}
	return nil
}

// DownLife returns how many life cards the owner loses when this holomem
// is downed.
func (d *Definition) DownLife() int {
	if d.DownLifeCost > 0 {
		return d.DownLifeCost
	}
	return 1
}

var knownConditions = map[string]bool{
	CondOpponentHasCollab: true,
	CondOshiIs:            true,
	CondOshiSkillUnused:   true,
	CondHolopowerAtLeast:  true,
	CondHolderNameIs:      true,
}

var knownEffects = map[EffectType]bool{
	EffectDealDamage:             true,
	EffectBoostStat:              true,
	EffectMoveCard:               true,
	EffectAttachCard:             true,
	EffectSendCheer:              true,
	EffectChooseCards:            true,
	EffectChooseHolomemForEffect: true,
	EffectSwapHolomemToCenter:    true,
	EffectMakeChoice:             true,
	EffectRollDie:                true,
	EffectOshiSkillUse:           true,
}

func validateEffects(cardID string, effects []Effect) error {
	for i := range effects {
		e := &effects[i]
		if !knownEffects[e.Type] {
			return fmt.Errorf("card %s: unknown effect verb %q", cardID, e.Type)
		}
		if e.Type == EffectMoveCard && (e.FromZone == "" || e.ToZone == "") {
			return fmt.Errorf("card %s: move_card needs from_zone and to_zone", cardID)
		}
		switch e.RemainingAction {
		case "", RemainingNothing, RemainingArchive, RemainingTopDeck, RemainingBottomDeck:
		default:
			return fmt.Errorf("card %s: unknown remaining_cards_action %q", cardID, e.RemainingAction)
		}
		for _, c := range e.Conditions {
			if !knownConditions[c.Condition] {
				return fmt.Errorf("card %s: unknown condition %q", cardID, c.Condition)
			}
		}
		if err := validateEffects(cardID, e.NegativeEffects); err != nil {
			return err
		}
		if err := validateEffects(cardID, e.ChosenEffects); err != nil {
			return err
		}
		for _, branch := range e.Choices {
			if err := validateEffects(cardID, branch); err != nil {
				return err
			}
		}
		for _, db := range e.DieEffects {
			if db.From < 1 || db.To > 6 || db.From > db.To {
				return fmt.Errorf("card %s: invalid die range %d-%d", cardID, db.From, db.To)
			}
			if err := validateEffects(cardID, db.Effects); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks a definition for structural problems after decoding.
func (d *Definition) Validate() error {
	if d.CardID == "" {
		return fmt.Errorf("card with empty card_id")
	}
	switch d.CardType {
	case TypeOshi, TypeHolomemDebut, TypeHolomemBloom, TypeHolomemSpot, TypeSupport, TypeCheer:
	default:
		return fmt.Errorf("card %s: unknown card_type %q", d.CardID, d.CardType)
	}
	if d.IsHolomem() && d.HP <= 0 {
		return fmt.Errorf("card %s: holomem needs hp", d.CardID)
	}
	if d.CardType == TypeCheer && len(d.Colors) == 0 {
		return fmt.Errorf("card %s: cheer needs a color", d.CardID)
	}
	if err := validateEffects(d.CardID, d.SupportEffects); err != nil {
		return err
	}
	if err := validateEffects(d.CardID, d.AttachEffects); err != nil {
		return err
	}
	if err := validateEffects(d.CardID, d.CollabEffects); err != nil {
		return err
	}
	for _, art := range d.Arts {
		if art.ArtID == "" {
			return fmt.Errorf("card %s: art with empty art_id", d.CardID)
		}
		if err := validateEffects(d.CardID, art.Effects); err != nil {
			return err
		}
	}
	for _, sk := range d.OshiSkills {
		if sk.SkillID == "" {
			return fmt.Errorf("card %s: oshi skill with empty skill_id", d.CardID)
		}
		if err := validateEffects(d.CardID, sk.Effects); err != nil {
			return err
		}
	}
	return nil
}
