// Package matrix expands a mentor roster into the full combinatorial space
// of eligible join-key rows. Each mentor contributes the cartesian product
// of its resolved subject codes, gender, eligible statuses, policy finance
// variants, and school bindings, subject to alias availability and the
// pre-expansion capacity gate.
package matrix

import (
	"fmt"
	"sort"

	"mentormatch/internal/crosswalk"
	"mentormatch/internal/normalize"
	"mentormatch/pkg/domain"
)

// BuildInput carries everything one build pass consumes. Inputs are
// read-only for the duration of the build.
type BuildInput struct {
	Mentors  []domain.MentorRecord
	Schools  []domain.SchoolRef
	Resolver *crosswalk.Resolver
	// Students is optional; it feeds the intersect/union coverage
	// denominator modes and is never matched against here.
	Students []domain.StudentRow
	Policy   domain.Policy
}

// BuildOutput is the full result of one build pass.
type BuildOutput struct {
	Rows              []domain.MatrixRow
	Pool              domain.Pool
	Gate              domain.GateReport
	Metrics           domain.CoverageMetrics
	Invalid           []domain.InvalidMentor
	UnseenGroups      []string
	UnmatchedSchools  []string
	DuplicatesRemoved int
	Log               []string
}

// variant is one row family of a mentor: Normal and School variants expand
// independently, each under its own alias.
type variant struct {
	mentor   domain.MentorRecord
	family   domain.Variant
	rowType  domain.MentorType
	alias    string
	statuses []domain.GraduationStatus
	schools  []int
	subjects []crosswalk.GroupCode
}

func (v variant) canGenerate() bool { return v.alias != "" }

// Build runs the full expansion. Soft anomalies accumulate in the returned
// Result; only structural invariants (dedup ratio) surface as an error.
func Build(in BuildInput) (BuildOutput, domain.Result, error) {
	var (
		out    BuildOutput
		result domain.Result
	)
	out.Log = append(out.Log, fmt.Sprintf("roster rows: %d", len(in.Mentors)))

	base := screenRoster(in.Mentors, &out, &result)
	base = applyCapacityGate(base, in.Policy, &out)
	out.Log = append(out.Log, fmt.Sprintf("pool after gate: %d", len(base)))

	schoolCodes := schoolIndex(in.Schools)
	variants := make([]variant, 0, len(base)*2)
	for _, m := range base {
		variants = append(variants, mentorVariants(m, in, schoolCodes, &out, &result)...)
	}

	rows, removed := expandVariants(variants, in.Policy)
	out.DuplicatesRemoved = removed
	if err := checkDedupRatio(len(rows)+removed, removed, rows, in.Policy); err != nil {
		return BuildOutput{}, result, err
	}
	out.Rows = rows
	out.Pool = domain.NewPool(rows)
	out.Log = append(out.Log, fmt.Sprintf("matrix rows: %d (duplicates removed: %d)", len(rows), removed))

	blocked := out.Metrics.BlockedCandidates
	out.Metrics = measureCoverage(variants, rows, in.Students, in.Policy, &result)
	out.Metrics.BlockedCandidates = blocked
	out.Log = append(out.Log, fmt.Sprintf("coverage: %.3f over %d groups", out.Metrics.CoverageRatio, out.Metrics.CandidateGroups))
	return out, result, nil
}

// screenRoster drops ineligible rows and every row sharing a duplicated
// employee code. Duplicates are excluded and reported individually; the
// roster itself stays usable.
func screenRoster(mentors []domain.MentorRecord, out *BuildOutput, result *domain.Result) []domain.MentorRecord {
	counts := make(map[string]int, len(mentors))
	for _, m := range mentors {
		counts[m.EmployeeID]++
	}
	kept := make([]domain.MentorRecord, 0, len(mentors))
	for _, m := range mentors {
		switch {
		case m.EmployeeID != "" && counts[m.EmployeeID] > 1:
			out.Invalid = append(out.Invalid, domain.InvalidMentor{
				RowID: m.RowID, EmployeeID: m.EmployeeID, Reason: "duplicate mentor employee code",
			})
			result.Add(domain.Violation{
				Rule: "duplicate_mentor", Severity: domain.SeverityWarn,
				Message: "duplicate mentor employee code excluded", SubjectID: m.EmployeeID,
			})
		case !m.Eligible:
			out.Invalid = append(out.Invalid, domain.InvalidMentor{
				RowID: m.RowID, EmployeeID: m.EmployeeID, Reason: "ineligible",
			})
		default:
			kept = append(kept, m)
		}
	}
	return kept
}

// applyCapacityGate removes mentors whose covered count has overrun their
// special limit past the policy threshold. The gate runs on the base roster
// before expansion, never per expanded row.
func applyCapacityGate(mentors []domain.MentorRecord, policy domain.Policy, out *BuildOutput) []domain.MentorRecord {
	kept := make([]domain.MentorRecord, 0, len(mentors))
	for _, m := range mentors {
		overrun := m.CoveredNow - m.Limit
		if m.CoveredNow >= m.Limit && overrun >= policy.CapacityGateThreshold {
			out.Gate.Removed = append(out.Gate.Removed, domain.RemovedMentor{
				Mentor:              m.Identity(),
				SpecialCapacityLost: overrun,
			})
			continue
		}
		kept = append(kept, m)
	}
	if len(mentors) == 0 {
		out.Gate.PercentPoolKept = 100
	} else {
		out.Gate.PercentPoolKept = 100 * float64(len(kept)) / float64(len(mentors))
	}
	return kept
}

func schoolIndex(schools []domain.SchoolRef) map[string]int {
	idx := make(map[string]int, len(schools))
	for _, s := range schools {
		idx[normalize.Key(s.Name)] = s.Code
	}
	return idx
}

// mentorVariants classifies one mentor and derives its row families.
func mentorVariants(m domain.MentorRecord, in BuildInput, schoolCodes map[string]int, out *BuildOutput, result *domain.Result) []variant {
	subjects := resolveSubjects(m, in.Resolver, out)
	if len(subjects) == 0 {
		out.Invalid = append(out.Invalid, domain.InvalidMentor{
			RowID: m.RowID, EmployeeID: m.EmployeeID, Reason: "no resolvable subject group",
		})
		return nil
	}

	postal, postalOK := normalize.Int(m.PostalCode)
	postalUsable := postalOK && in.Policy.PostalAliasValid(postal)
	schoolBound := m.HasSchoolBinding()

	rowType := classify(postalUsable, schoolBound)
	var variants []variant

	if rowType == domain.MentorNormal || rowType == domain.MentorDual {
		alias := m.EmployeeID
		if postalUsable {
			alias = normalize.Digits(m.PostalCode)
		}
		variants = append(variants, variant{
			mentor:   m,
			family:   domain.VariantNormal,
			rowType:  rowType,
			alias:    alias,
			statuses: in.Policy.NormalStatuses,
			schools:  []int{domain.SchoolUnrestricted},
			subjects: subjects,
		})
	}
	if rowType == domain.MentorSchool || rowType == domain.MentorDual {
		variants = append(variants, variant{
			mentor:   m,
			family:   domain.VariantSchool,
			rowType:  rowType,
			alias:    m.EmployeeID,
			statuses: in.Policy.SchoolStatuses,
			schools:  resolveSchools(m, schoolCodes, out),
			subjects: subjects,
		})
	}

	for _, v := range variants {
		if !v.canGenerate() {
			out.Metrics.BlockedCandidates++
			result.Add(domain.Violation{
				Rule: "blocked_candidate", Severity: domain.SeverityLog,
				Message: "variant has no usable alias", SubjectID: m.EmployeeID,
			})
		}
	}
	return variants
}

// classify derives the mentor type. School requires a binding and no usable
// postal alias; a mentor with neither falls back to Normal under its
// employee id so every generatable row keeps a stable external key.
func classify(postalUsable, schoolBound bool) domain.MentorType {
	switch {
	case schoolBound && postalUsable:
		return domain.MentorDual
	case schoolBound:
		return domain.MentorSchool
	default:
		return domain.MentorNormal
	}
}

func resolveSubjects(m domain.MentorRecord, resolver *crosswalk.Resolver, out *BuildOutput) []crosswalk.GroupCode {
	seen := make(map[int]struct{})
	var subjects []crosswalk.GroupCode
	for _, token := range m.GroupTokens {
		pairs, ok := resolver.ExpandGroupToken(token)
		if !ok {
			out.UnseenGroups = append(out.UnseenGroups, token)
			continue
		}
		for _, p := range pairs {
			if _, dup := seen[p.Code]; dup {
				continue
			}
			seen[p.Code] = struct{}{}
			subjects = append(subjects, p)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects
}

func resolveSchools(m domain.MentorRecord, schoolCodes map[string]int, out *BuildOutput) []int {
	seen := make(map[int]struct{})
	var codes []int
	for _, name := range m.SchoolNames {
		if name == "" {
			continue
		}
		code, ok := schoolCodes[normalize.Key(name)]
		if !ok {
			out.UnmatchedSchools = append(out.UnmatchedSchools, name)
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// expandVariants emits the cartesian product for every generatable variant
// and merges rows sharing a mentor id plus full join key.
func expandVariants(variants []variant, policy domain.Policy) (rows []domain.MatrixRow, removed int) {
	type rowKey struct {
		mentorID string
		key      domain.JoinKey
	}
	seen := make(map[rowKey]struct{})
	for _, v := range variants {
		if !v.canGenerate() {
			continue
		}
		capacity := v.mentor.Capacity()
		for _, subj := range v.subjects {
			for _, status := range v.statuses {
				for _, finance := range policy.FinanceVariants {
					for _, school := range v.schools {
						key := domain.JoinKey{
							Subject: subj.Code,
							Gender:  v.mentor.Gender,
							Status:  status,
							Center:  v.mentor.Center,
							Finance: finance,
							School:  school,
						}
						rk := rowKey{mentorID: v.mentor.EmployeeID, key: key}
						if _, dup := seen[rk]; dup {
							removed++
							continue
						}
						seen[rk] = struct{}{}
						rows = append(rows, domain.MatrixRow{
							Alias:       v.alias,
							Mentor:      v.mentor.Identity(),
							Key:         key,
							RowType:     v.rowType,
							Variant:     v.family,
							MentorRowID: v.mentor.RowID,
							Capacity:    capacity,
						})
					}
				}
			}
		}
	}
	return rows, removed
}

// checkDedupRatio fails the build when merged duplicates exceed the policy
// ratio: silent over-dedup would corrupt coverage accounting.
func checkDedupRatio(emitted, removed int, rows []domain.MatrixRow, policy domain.Policy) error {
	if emitted == 0 || removed == 0 {
		return nil
	}
	ratio := float64(removed) / float64(emitted)
	if ratio <= policy.DedupRatioThreshold {
		return nil
	}
	offending := make([]domain.OffendingRow, 0, len(rows))
	seen := make(map[string]struct{})
	for _, r := range rows {
		if _, ok := seen[r.Mentor.MentorID]; ok {
			continue
		}
		seen[r.Mentor.MentorID] = struct{}{}
		offending = append(offending, domain.OffendingRow{
			RowID:      r.MentorRowID,
			EmployeeID: r.Mentor.MentorID,
			Detail:     fmt.Sprintf("dedup ratio %.3f exceeds threshold %.3f", ratio, policy.DedupRatioThreshold),
		})
	}
	return domain.InvariantError{Invariant: "dedup_ratio", Rows: offending}
}
