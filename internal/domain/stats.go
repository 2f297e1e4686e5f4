package domain

import "time"

// WorkOrderStats are the dashboard KPIs for a tenant. Averages and
// rates are nil when their denominator is zero.
type WorkOrderStats struct {
	Total             int
	StatusCounts      map[Status]int
	OverdueCount      int
	AvgCompletionTime *time.Duration
	SLAComplianceRate *float64
}
