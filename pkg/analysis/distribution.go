// Package analysis derives aggregate statistics from job snapshots.
package analysis

import (
	"github.com/vanderheijden86/qdash/pkg/metrics"
	"github.com/vanderheijden86/qdash/pkg/model"
)

// Aggregate reduces a snapshot to its status distribution. Every job
// contributes exactly one unit to its status; labels keep first-appearance
// order. It is pure: the same snapshot always yields an Equal distribution.
func Aggregate(snapshot model.JobSnapshot) model.StatusDistribution {
	defer metrics.Timer(metrics.Aggregate)()

	var dist model.StatusDistribution
	for i := range snapshot {
		dist.Add(snapshot[i].Status)
	}
	return dist
}
