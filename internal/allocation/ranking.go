package allocation

import (
	"sort"

	"mentormatch/pkg/domain"
)

// rankCandidates picks the winning row from a non-empty survivor set. The
// policy's comparator chain is evaluated lexicographically; ties always
// fall through to natural mentor-id order, never first-seen order, so the
// result is independent of row arrival order.
func rankCandidates(rows []domain.MatrixRow, pool domain.Pool, policy domain.Policy) domain.MatrixRow {
	// One entry per mentor: rows of the same mentor are interchangeable at
	// this point, so keep the first in deterministic row order.
	byMentor := make(map[string]domain.MatrixRow, len(rows))
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := byMentor[r.Mentor.MentorID]; !ok {
			byMentor[r.Mentor.MentorID] = r
			order = append(order, r.Mentor.MentorID)
		}
	}

	rules := policy.RankingOrder
	if len(rules) == 0 {
		rules = []domain.RankRule{domain.RankMinOccupancy, domain.RankMinAllocationsNew, domain.RankMinMentorID}
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		for _, rule := range rules {
			switch rule {
			case domain.RankMinOccupancy:
				ra, rb := pool.Capacities[a].OccupancyRatio(), pool.Capacities[b].OccupancyRatio()
				if ra != rb {
					return ra < rb
				}
			case domain.RankMinAllocationsNew:
				na, nb := pool.Capacities[a].AllocationsNew, pool.Capacities[b].AllocationsNew
				if na != nb {
					return na < nb
				}
			case domain.RankMinMentorID:
				if c := domain.CompareNatural(a, b); c != 0 {
					return c < 0
				}
			}
		}
		// Exhausted chain: force natural-id order as the terminal tie-break.
		return domain.CompareNatural(a, b) < 0
	})

	return byMentor[order[0]]
}
