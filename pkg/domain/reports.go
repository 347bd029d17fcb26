package domain

// RemovedMentor reports one mentor dropped by the capacity gate.
type RemovedMentor struct {
	Mentor              MentorIdentity `json:"mentor"`
	SpecialCapacityLost int            `json:"special_capacity_lost"`
}

// GateReport summarizes the pre-expansion capacity gate.
type GateReport struct {
	Removed         []RemovedMentor `json:"removed,omitempty"`
	PercentPoolKept float64         `json:"percent_pool_kept"`
}

// CoverageMetrics summarizes matrix coverage against the candidate space.
type CoverageMetrics struct {
	CandidateGroups   int             `json:"candidate_groups"`
	CoveredGroups     int             `json:"covered_groups"`
	UnseenViable      int             `json:"unseen_viable"`
	MatrixOnly        int             `json:"matrix_only"`
	BlockedCandidates int             `json:"blocked_candidates"`
	CoverageRatio     float64         `json:"coverage_ratio"`
	Denominator       DenominatorMode `json:"denominator"`
}

// InvalidMentor reports one roster row excluded before expansion.
type InvalidMentor struct {
	RowID      int    `json:"row_id"`
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason"`
}
