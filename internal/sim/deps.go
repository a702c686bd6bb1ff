package sim

import (
	"go.opentelemetry.io/otel/trace"

	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/combat"
	"gridtactics/server/internal/dice"
	"gridtactics/server/internal/telemetry"
	"gridtactics/server/logging"
)

// Deps carries the collaborators a sequencer needs. Lookup and Roller are
// required; everything else has a default.
type Deps struct {
	Lookup    catalog.Lookup
	Roller    *dice.Roller
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Tracer    trace.Tracer
	// Resolve overrides the damage worker's computation.
	Resolve combat.ResolveFunc
}
