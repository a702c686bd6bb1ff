package combat

import "testing"

func TestCompute(t *testing.T) {
	cases := []struct {
		name        string
		req         DamageRequest
		hp, barrier int
	}{
		{
			name: "defense subtracts from raw",
			req:  DamageRequest{TargetID: "t", RawDamage: 26, Target: StatSnapshot{Defense: 10}, TargetHP: 40},
			hp:   16,
		},
		{
			name:    "barrier absorbs first",
			req:     DamageRequest{TargetID: "t", RawDamage: 26, Target: StatSnapshot{Defense: 10}, TargetHP: 40, TargetBarrier: 6, TargetMaxBarrier: 6},
			hp:      10,
			barrier: 6,
		},
		{
			name:    "damage within barrier spares hp",
			req:     DamageRequest{TargetID: "t", RawDamage: 12, Target: StatSnapshot{Defense: 10}, TargetHP: 40, TargetBarrier: 8},
			barrier: 2,
		},
		{
			name: "mitigation floors at zero",
			req:  DamageRequest{TargetID: "t", RawDamage: 3, Target: StatSnapshot{Defense: 10}, TargetHP: 40},
		},
		{
			name: "magical uses resistance",
			req:  DamageRequest{TargetID: "t", RawDamage: 20, Type: DamageMagical, Target: StatSnapshot{Defense: 50, Resistance: 5}, TargetHP: 40},
			hp:   15,
		},
		{
			name: "multiplier before mitigation",
			req:  DamageRequest{TargetID: "t", RawDamage: 10, Multiplier: 1.5, Target: StatSnapshot{Defense: 5}, TargetHP: 40},
			hp:   10,
		},
		{
			name: "reduction percentage",
			req:  DamageRequest{TargetID: "t", RawDamage: 30, Target: StatSnapshot{Defense: 10}, TargetHP: 40, ReductionPct: 25},
			hp:   15,
		},
		{
			name: "hp damage capped at current hp",
			req:  DamageRequest{TargetID: "t", RawDamage: 100, TargetHP: 7},
			hp:   7,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.req)
			if got.HPDamageDealt != tc.hp || got.BarrierDamageDealt != tc.barrier {
				t.Fatalf("expected hp=%d barrier=%d, got %+v", tc.hp, tc.barrier, got)
			}
			if got.UnitID != "t" {
				t.Fatalf("expected result for target t, got %q", got.UnitID)
			}
		})
	}
}
