package workflow

import "fmt"

// Route is the closed set of handler paths.
type Route int

// Routes in handler order.
const (
	RouteEscalation Route = iota
	RoutePositive
	RouteNegative
	RouteQuery
)

func (r Route) String() string {
	switch r {
	case RouteEscalation:
		return "escalation"
	case RoutePositive:
		return "positive_feedback"
	case RouteNegative:
		return "negative_feedback"
	case RouteQuery:
		return "query"
	default:
		return fmt.Sprintf("route(%d)", int(r))
	}
}

// SelectRoute applies the confidence gate first, then maps the label.
// Confidence below the threshold always escalates; with
// EscalateAtThreshold set, confidence equal to it escalates too.
// An unmapped label escalates with ErrRouting.
func SelectRoute(c Classification, confidence float64, cfg Config) (Route, error) {
	if belowThreshold(confidence, cfg) {
		return RouteEscalation, nil
	}

	switch c {
	case ClassPositive:
		return RoutePositive, nil
	case ClassNegative:
		return RouteNegative, nil
	case ClassQuery:
		return RouteQuery, nil
	case ClassUnknown:
		return RouteEscalation, nil
	default:
		return RouteEscalation, fmt.Errorf("%w: %q", ErrRouting, c)
	}
}

func belowThreshold(confidence float64, cfg Config) bool {
	if cfg.EscalateAtThreshold {
		return confidence <= cfg.ConfidenceThreshold
	}
	return confidence < cfg.ConfidenceThreshold
}
