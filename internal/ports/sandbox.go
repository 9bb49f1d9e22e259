package ports

import (
	"context"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// Port: isolated execution of one fare scoring function.
//
// The script sees only the attribute bag and the trip context; no
// filesystem, network, process or clock access. Failures cross the
// boundary as exactly one of domain.ErrScriptTimeout,
// domain.ErrScriptMemoryExceeded or domain.ErrScriptEvaluationFailed.
type ScriptSandbox interface {
	Evaluate(ctx context.Context, functionBody string, attributes map[string]any, trip domain.TripContext) (domain.Evaluation, error)
}
