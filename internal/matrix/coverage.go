package matrix

import (
	"fmt"

	"mentormatch/pkg/domain"
)

// measureCoverage checks every candidate group reachable from the base
// roster against the built matrix. A group is covered when at least one row
// exists, unseen-viable when a generatable variant reaches it but no row
// does, and matrix-only when rows exist with no backing roster variant.
func measureCoverage(variants []variant, rows []domain.MatrixRow, students []domain.StudentRow, policy domain.Policy, result *domain.Result) domain.CoverageMetrics {
	metrics := domain.CoverageMetrics{Denominator: policy.CoverageDenominator}

	candidate := make(map[domain.JoinKey]bool) // value: reachable from a generatable variant
	for _, v := range variants {
		viable := v.canGenerate()
		for _, key := range variantGroups(v, policy) {
			candidate[key] = candidate[key] || viable
		}
	}

	built := make(map[domain.JoinKey]struct{}, len(rows))
	for _, r := range rows {
		built[r.Key] = struct{}{}
	}

	studentGroups := make(map[domain.JoinKey]struct{}, len(students))
	for _, s := range students {
		studentGroups[s.Key] = struct{}{}
	}

	denominator := make(map[domain.JoinKey]struct{}, len(candidate))
	switch policy.CoverageDenominator {
	case domain.DenominatorIntersect:
		for key := range candidate {
			if _, ok := studentGroups[key]; ok {
				denominator[key] = struct{}{}
			}
		}
	case domain.DenominatorUnion:
		for key := range candidate {
			denominator[key] = struct{}{}
		}
		for key := range studentGroups {
			denominator[key] = struct{}{}
		}
	default: // mentor-only
		for key := range candidate {
			denominator[key] = struct{}{}
		}
	}

	metrics.CandidateGroups = len(candidate)
	for key := range denominator {
		if _, ok := built[key]; ok {
			metrics.CoveredGroups++
		}
	}
	for key, viable := range candidate {
		if _, ok := built[key]; !ok && viable {
			metrics.UnseenViable++
		}
	}
	for key := range built {
		if _, ok := candidate[key]; !ok {
			metrics.MatrixOnly++
		}
	}

	if len(denominator) > 0 {
		metrics.CoverageRatio = float64(metrics.CoveredGroups) / float64(len(denominator))
	}
	if metrics.CoverageRatio < policy.CoverageFloor {
		result.Add(domain.Violation{
			Rule: "coverage_floor", Severity: domain.SeverityWarn,
			Message: fmt.Sprintf("coverage ratio %.3f below floor %.3f", metrics.CoverageRatio, policy.CoverageFloor),
		})
	}
	if metrics.UnseenViable > 0 {
		result.Add(domain.Violation{
			Rule: "unseen_viable", Severity: domain.SeverityWarn,
			Message: fmt.Sprintf("%d viable groups have no matrix row", metrics.UnseenViable),
		})
	}
	return metrics
}

// variantGroups enumerates the join keys a variant would reach, whether or
// not it can generate rows. Blocked variants still count for diagnostics.
func variantGroups(v variant, policy domain.Policy) []domain.JoinKey {
	var keys []domain.JoinKey
	for _, subj := range v.subjects {
		for _, status := range v.statuses {
			for _, finance := range policy.FinanceVariants {
				for _, school := range v.schools {
					keys = append(keys, domain.JoinKey{
						Subject: subj.Code,
						Gender:  v.mentor.Gender,
						Status:  status,
						Center:  v.mentor.Center,
						Finance: finance,
						School:  school,
					})
				}
			}
		}
	}
	return keys
}

// ValidateExternal measures coverage for an externally supplied matrix
// against a roster, catching stale matrix-only groups that have no backing
// mentor.
func ValidateExternal(rows []domain.MatrixRow, in BuildInput) (domain.CoverageMetrics, domain.Result) {
	var (
		out    BuildOutput
		result domain.Result
	)
	base := screenRoster(in.Mentors, &out, &result)
	base = applyCapacityGate(base, in.Policy, &out)
	schoolCodes := schoolIndex(in.Schools)
	var variants []variant
	for _, m := range base {
		variants = append(variants, mentorVariants(m, in, schoolCodes, &out, &result)...)
	}
	metrics := measureCoverage(variants, rows, in.Students, in.Policy, &result)
	return metrics, result
}
