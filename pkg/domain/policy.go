package domain

// DenominatorMode selects the group space used as the coverage denominator.
type DenominatorMode string

// Coverage denominator modes.
const (
	// DenominatorMentorOnly counts every group reachable from the base roster.
	DenominatorMentorOnly DenominatorMode = "mentor_only"
	// DenominatorIntersect counts only roster groups also observed in students.
	DenominatorIntersect DenominatorMode = "intersect_students"
	// DenominatorUnion counts roster groups united with observed student groups.
	DenominatorUnion DenominatorMode = "union_students"
)

// RankRule names one comparator of the ranking chain.
type RankRule string

// Ranking comparators, evaluated lexicographically in policy order.
const (
	RankMinOccupancy      RankRule = "min_occupancy_ratio"
	RankMinAllocationsNew RankRule = "min_allocations_new"
	RankMinMentorID       RankRule = "min_mentor_id"
)

// CenterWildcard is the center-map key matching any center name.
const CenterWildcard = "*"

// Policy carries every tunable both engines consume. It is an immutable
// value passed into each engine call; engines never read process state.
type Policy struct {
	// PostalMin..PostalMax is the inclusive range of postal codes usable as
	// a row alias. Codes outside the range fall back to the employee id.
	PostalMin int
	PostalMax int

	// FinanceVariants is the fixed finance dimension of the expansion.
	FinanceVariants []int

	// CenterMap resolves a normalized center name to its id. The
	// CenterWildcard key, when present, catches unmapped names.
	CenterMap map[string]int

	// NormalStatuses and SchoolStatuses are the graduation statuses each row
	// family may emit.
	NormalStatuses []GraduationStatus
	SchoolStatuses []GraduationStatus

	// SchoolCodeEmptyAsZero maps an empty student school cell to
	// SchoolUnrestricted instead of rejecting the row.
	SchoolCodeEmptyAsZero bool

	// CapacityGateThreshold is the overrun (covered minus limit) at which a
	// saturated mentor is dropped from the pool before expansion.
	CapacityGateThreshold int

	// DedupRatioThreshold is the highest tolerated fraction of expanded rows
	// removed as duplicates before the build fails hard.
	DedupRatioThreshold float64

	// CoverageFloor is the coverage ratio below which a validation warning
	// is reported.
	CoverageFloor float64

	// CoverageDenominator selects the denominator group space.
	CoverageDenominator DenominatorMode

	// RankingOrder is the comparator chain for candidate ranking.
	RankingOrder []RankRule
}

// DefaultPolicy returns the production policy values.
func DefaultPolicy() Policy {
	return Policy{
		PostalMin:             1000,
		PostalMax:             99999,
		FinanceVariants:       []int{0, 1, 3},
		CenterMap:             map[string]int{CenterWildcard: 0},
		NormalStatuses:        []GraduationStatus{StatusStudent, StatusGraduate},
		SchoolStatuses:        []GraduationStatus{StatusStudent},
		SchoolCodeEmptyAsZero: true,
		CapacityGateThreshold: 2,
		DedupRatioThreshold:   0.25,
		CoverageFloor:         0.60,
		CoverageDenominator:   DenominatorMentorOnly,
		RankingOrder:          []RankRule{RankMinOccupancy, RankMinAllocationsNew, RankMinMentorID},
	}
}

// CenterID resolves a normalized center name, falling back to the wildcard
// entry when present.
func (p Policy) CenterID(name string) (int, bool) {
	if id, ok := p.CenterMap[name]; ok {
		return id, true
	}
	if id, ok := p.CenterMap[CenterWildcard]; ok {
		return id, true
	}
	return 0, false
}

// PostalAliasValid reports whether a numeric postal code may serve as alias.
func (p Policy) PostalAliasValid(code int) bool {
	return code >= p.PostalMin && code <= p.PostalMax
}
