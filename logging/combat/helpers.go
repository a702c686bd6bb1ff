package combat

import "gridtactics/server/logging"

const (
	// EventAttackAttempt is emitted when a unit commits to an attack.
	EventAttackAttempt logging.EventType = "combat.attack_attempt"
	// EventDamageCalculated is emitted when the damage channel replies.
	EventDamageCalculated logging.EventType = "combat.damage_calculated"
	// EventDamageDisplayed is emitted once per pool (barrier or hp) that took damage.
	EventDamageDisplayed logging.EventType = "combat.damage_displayed"
	// EventDefeat is emitted exactly once when a unit's hp reaches zero.
	EventDefeat logging.EventType = "combat.defeat"
	// EventHeal is emitted when a unit recovers hp.
	EventHeal logging.EventType = "combat.heal"
	// EventMoved is emitted when a unit changes tile.
	EventMoved logging.EventType = "combat.moved"
	// EventCriticalError is emitted when the damage channel fails and the battle halts.
	EventCriticalError logging.EventType = "combat.critical_error"
)

// Damage pools reported by EventDamageDisplayed.
const (
	PoolBarrier = "barrier"
	PoolHP      = "hp"
)

// AttackAttemptPayload describes the pre-rolled attack sent for resolution.
type AttackAttemptPayload struct {
	Skill      string `json:"skill,omitempty"`
	RawDamage  int    `json:"rawDamage"`
	DamageType string `json:"damageType"`
}

// DamageCalculatedPayload mirrors the damage channel result.
type DamageCalculatedPayload struct {
	Skill         string `json:"skill,omitempty"`
	HPDamage      int    `json:"hpDamage"`
	BarrierDamage int    `json:"barrierDamage"`
	TargetHP      int    `json:"targetHp"`
	TargetBarrier int    `json:"targetBarrier"`
	StatusEffect  string `json:"statusEffect,omitempty"`
}

// DamageDisplayedPayload drives the floating damage numbers.
type DamageDisplayedPayload struct {
	Pool   string `json:"pool"`
	Amount int    `json:"amount"`
}

// DefeatPayload describes the context for a fatal blow.
type DefeatPayload struct {
	Skill        string `json:"skill,omitempty"`
	StatusEffect string `json:"statusEffect,omitempty"`
}

// HealPayload captures a heal applied to a unit.
type HealPayload struct {
	Skill        string `json:"skill,omitempty"`
	StatusEffect string `json:"statusEffect,omitempty"`
	Amount       int    `json:"amount"`
	TargetHP     int    `json:"targetHp"`
}

// MovedPayload captures a tile change.
type MovedPayload struct {
	FromX int `json:"fromX"`
	FromY int `json:"fromY"`
	ToX   int `json:"toX"`
	ToY   int `json:"toY"`
}

// CriticalErrorPayload reports why the battle halted.
type CriticalErrorPayload struct {
	Error string `json:"error"`
}

// AttackAttempt builds an attack-attempt event.
func AttackAttempt(turn int, actor, target logging.EntityRef, payload AttackAttemptPayload) logging.Event {
	return combatEvent(EventAttackAttempt, turn, actor, []logging.EntityRef{target}, logging.SeverityInfo, payload)
}

// DamageCalculated builds a damage-calculated event.
func DamageCalculated(turn int, actor, target logging.EntityRef, payload DamageCalculatedPayload) logging.Event {
	return combatEvent(EventDamageCalculated, turn, actor, []logging.EntityRef{target}, logging.SeverityInfo, payload)
}

// DamageDisplayed builds a damage-displayed event for a single pool.
func DamageDisplayed(turn int, actor, target logging.EntityRef, payload DamageDisplayedPayload) logging.Event {
	return combatEvent(EventDamageDisplayed, turn, actor, []logging.EntityRef{target}, logging.SeverityInfo, payload)
}

// Defeat builds a defeat event for the eliminated unit.
func Defeat(turn int, actor, target logging.EntityRef, payload DefeatPayload) logging.Event {
	return combatEvent(EventDefeat, turn, actor, []logging.EntityRef{target}, logging.SeverityInfo, payload)
}

// Heal builds a heal event.
func Heal(turn int, actor, target logging.EntityRef, payload HealPayload) logging.Event {
	return combatEvent(EventHeal, turn, actor, []logging.EntityRef{target}, logging.SeverityInfo, payload)
}

// Moved builds a movement event.
func Moved(turn int, actor logging.EntityRef, payload MovedPayload) logging.Event {
	return combatEvent(EventMoved, turn, actor, nil, logging.SeverityDebug, payload)
}

// CriticalError builds the single game-halting notification.
func CriticalError(turn int, actor logging.EntityRef, payload CriticalErrorPayload) logging.Event {
	return combatEvent(EventCriticalError, turn, actor, nil, logging.SeverityCritical, payload)
}

func combatEvent(typ logging.EventType, turn int, actor logging.EntityRef, targets []logging.EntityRef, severity logging.Severity, payload any) logging.Event {
	return logging.Event{
		Type:     typ,
		Turn:     turn,
		Actor:    actor,
		Targets:  targets,
		Severity: severity,
		Category: logging.CategoryCombat,
		Payload:  payload,
	}
}
