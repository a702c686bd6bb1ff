package state

// UnitSnapshot is the read-only view of a unit handed to presentation
// collaborators.
type UnitSnapshot struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	ClassID       string                 `json:"classId"`
	Team          Team                   `json:"team"`
	X             int                    `json:"x"`
	Y             int                    `json:"y"`
	HP            int                    `json:"hp"`
	MaxHP         int                    `json:"maxHp"`
	Barrier       int                    `json:"barrier"`
	MaxBarrier    int                    `json:"maxBarrier"`
	Alive         bool                   `json:"alive"`
	Stats         map[string]int         `json:"stats"`
	SkillSlots    []string               `json:"skillSlots,omitempty"`
	StatusEffects []StatusEffectInstance `json:"statusEffects,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
}

// Snapshot copies the unit into a value that shares no memory with it.
func (u *Unit) Snapshot() UnitSnapshot {
	snap := UnitSnapshot{
		ID:         u.ID,
		Name:       u.Name,
		ClassID:    u.ClassID,
		Team:       u.Team,
		X:          u.X,
		Y:          u.Y,
		HP:         u.CurrentHP,
		MaxHP:      u.MaxHP(),
		Barrier:    u.CurrentBarrier,
		MaxBarrier: u.MaxBarrier,
		Alive:      u.Alive(),
		Stats:      u.Stats.Snapshot().Map(),
		Tags:       u.TagList(),
	}
	if len(u.SkillSlots) > 0 {
		snap.SkillSlots = append([]string(nil), u.SkillSlots...)
	}
	if len(u.StatusEffects) > 0 {
		snap.StatusEffects = append([]StatusEffectInstance(nil), u.StatusEffects...)
	}
	return snap
}

// BattleSnapshot captures the full battlefield at a point in time.
type BattleSnapshot struct {
	BattleID string         `json:"battleId"`
	Turn     int            `json:"turn"`
	Phase    string         `json:"phase"`
	Cols     int            `json:"cols"`
	Rows     int            `json:"rows"`
	Units    []UnitSnapshot `json:"units"`
	Ended    bool           `json:"ended"`
	Reason   string         `json:"reason,omitempty"`
	Winner   Team           `json:"winner,omitempty"`
}
