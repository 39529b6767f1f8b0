package geo

import (
	"sort"
	"time"
)

// DefaultThresholdKM is the spatial clustering threshold used for itinerary
// generation.
const DefaultThresholdKM = 10.0

// DefaultTimeGap is the capture-time gap beyond which a spatial cluster is
// split into separate visits.
const DefaultTimeGap = 3 * 24 * time.Hour

// Member is a single capture event assigned to a cluster. TakenAt is the
// zero time when the capture time is unknown.
type Member struct {
	ID string
	Coordinate
	TakenAt time.Time
}

// Cluster groups members around a fixed center. The center is the coordinate
// of the first member assigned and is never recomputed, so assignment depends
// on input order. Callers should sort members by capture time first.
type Cluster struct {
	Center  Coordinate
	Members []Member
}

// ClusterByProximity groups members into clusters using a single greedy pass:
// each member joins the first existing cluster whose center is within
// thresholdKM by haversine distance, otherwise it opens a new cluster.
func ClusterByProximity(members []Member, thresholdKM float64) []Cluster {
	var clusters []Cluster

	for _, m := range members {
		joined := false
		for i := range clusters {
			if Haversine(m.Coordinate, clusters[i].Center) <= thresholdKM {
				clusters[i].Members = append(clusters[i].Members, m)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, Cluster{
				Center:  m.Coordinate,
				Members: []Member{m},
			})
		}
	}

	return clusters
}

// SplitByTimeGaps refines spatial clusters by capture time: each cluster's
// members are sorted by TakenAt and split wherever the gap between
// consecutive timestamps exceeds maxGap. Sub-clusters keep the parent's
// center. Members without a capture time never open a gap; they stay in the
// current group.
func SplitByTimeGaps(clusters []Cluster, maxGap time.Duration) []Cluster {
	var out []Cluster

	for _, c := range clusters {
		members := make([]Member, len(c.Members))
		copy(members, c.Members)
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].TakenAt.Before(members[j].TakenAt)
		})

		group := Cluster{Center: c.Center}
		var last time.Time
		for _, m := range members {
			if !m.TakenAt.IsZero() {
				if !last.IsZero() && m.TakenAt.Sub(last) > maxGap {
					out = append(out, group)
					group = Cluster{Center: c.Center}
				}
				last = m.TakenAt
			}
			group.Members = append(group.Members, m)
		}
		if len(group.Members) > 0 {
			out = append(out, group)
		}
	}

	return out
}

// EarliestCapture returns the earliest non-zero capture time among the
// cluster's members, or the zero time when none is known.
func (c Cluster) EarliestCapture() time.Time {
	var earliest time.Time
	for _, m := range c.Members {
		if m.TakenAt.IsZero() {
			continue
		}
		if earliest.IsZero() || m.TakenAt.Before(earliest) {
			earliest = m.TakenAt
		}
	}
	return earliest
}
