// Package allocation walks each student through a fixed eight-stage
// eligibility pipeline over the candidate matrix, deterministically ranks
// the survivors, and commits one capacity-consuming assignment per student.
// Every stage emits a trace record whether or not it matched, so the full
// decision funnel can be reconstructed for every student.
package allocation

import (
	"strconv"

	"mentormatch/pkg/domain"
)

// Input is one allocation run. Students are processed strictly in slice
// order: capacity consumed by earlier students shapes tie-breaks for later
// ones, by design.
type Input struct {
	Students []domain.StudentRow
	Pool     domain.Pool
	Policy   domain.Policy
}

// Output is the complete result of a run. Pool is a fresh value carrying
// the consumed capacity; the caller's input pool is never mutated.
type Output struct {
	Allocations []domain.AllocationDecision
	Pool        domain.Pool
	Decisions   []domain.Decision
	Trace       []domain.TraceRecord
}

// stage is one monotonic filter of the pipeline.
type stage struct {
	name   string
	column string
	reason domain.ReasonCode
	keep   func(row domain.MatrixRow, student domain.StudentRow, pool domain.Pool) bool
	extras func(row domain.MatrixRow, student domain.StudentRow) map[string]string
}

// The eight stages, in contract order. The first stage whose output set
// becomes empty terminates the student's pipeline with its reason code.
func stages() []stage {
	return []stage{
		{
			name: "type", column: "row_type", reason: domain.ReasonTypeMismatch,
			keep: func(row domain.MatrixRow, s domain.StudentRow, _ domain.Pool) bool {
				return s.Track == domain.VariantAny || s.Track == row.Variant
			},
		},
		{
			name: "group", column: "subject_code", reason: domain.ReasonGroupMismatch,
			keep: func(row domain.MatrixRow, s domain.StudentRow, _ domain.Pool) bool {
				return row.Key.Subject == s.Key.Subject
			},
		},
		{
			name: "gender", column: "gender", reason: domain.ReasonGenderMismatch,
			keep: func(row domain.MatrixRow, s domain.StudentRow, _ domain.Pool) bool {
				return row.Key.Gender == s.Key.Gender
			},
		},
		{
			name: "graduation_status", column: "status", reason: domain.ReasonGraduationStatus,
			keep: func(row domain.MatrixRow, s domain.StudentRow, _ domain.Pool) bool {
				return row.Key.Status == s.Key.Status
			},
		},
		{
			name: "center", column: "center", reason: domain.ReasonCenterMismatch,
			keep: func(row domain.MatrixRow, s domain.StudentRow, _ domain.Pool) bool {
				return row.Key.Center == s.Key.Center
			},
		},
		{
			name: "finance", column: "finance", reason: domain.ReasonFinanceMismatch,
			keep: func(row domain.MatrixRow, s domain.StudentRow, _ domain.Pool) bool {
				return row.Key.Finance == s.Key.Finance
			},
		},
		{
			name: "school", column: "school_code", reason: domain.ReasonSchoolStatus,
			keep: func(row domain.MatrixRow, s domain.StudentRow, _ domain.Pool) bool {
				return row.Key.School == domain.SchoolUnrestricted || row.Key.School == s.Key.School
			},
			extras: func(row domain.MatrixRow, s domain.StudentRow) map[string]string {
				return map[string]string{
					"row_school":     strconv.Itoa(row.Key.School),
					"student_school": strconv.Itoa(s.Key.School),
				}
			},
		},
		{
			name: "capacity_gate", column: "remaining_capacity", reason: domain.ReasonCapacityFull,
			keep: func(row domain.MatrixRow, _ domain.StudentRow, pool domain.Pool) bool {
				return pool.Remaining(row.Mentor.MentorID) > 0
			},
		},
	}
}

// Run executes the pipeline for every student. It is a pure batch
// transform: no randomness, no clock, no map-order dependency anywhere in
// the filters or the ranking.
func Run(in Input) Output {
	out := Output{Pool: in.Pool.Clone()}
	pipeline := stages()
	counter := 0

	for _, student := range in.Students {
		candidates := out.Pool.Rows
		var failed *stage

		for i := range pipeline {
			st := &pipeline[i]
			next := candidates[:0:0]
			for _, row := range candidates {
				if st.keep(row, student, out.Pool) {
					next = append(next, row)
				}
			}
			rec := domain.TraceRecord{
				StudentID: student.StudentID,
				Stage:     st.name,
				Column:    st.column,
				Before:    len(candidates),
				After:     len(next),
				Matched:   len(next) > 0,
			}
			if st.extras != nil {
				rec.Extras = st.extras(sampleRow(candidates), student)
			}
			out.Trace = append(out.Trace, rec)
			candidates = next
			if len(candidates) == 0 {
				failed = st
				break
			}
		}

		if failed != nil {
			out.Decisions = append(out.Decisions, domain.Decision{
				StudentID: student.StudentID,
				Allocated: false,
				Reason:    failed.reason,
			})
			continue
		}

		winner := rankCandidates(candidates, out.Pool, in.Policy)
		committed := commit(&out.Pool, winner.Mentor.MentorID)
		counter++
		decision := domain.AllocationDecision{
			StudentID:         student.StudentID,
			MentorID:          winner.Mentor.MentorID,
			Reason:            domain.ReasonAllocated,
			OccupancyRatio:    committed.OccupancyRatio(),
			AllocationsNew:    committed.AllocationsNew,
			RemainingCapacity: committed.Remaining(),
			Counter:           counter,
		}
		out.Allocations = append(out.Allocations, decision)
		out.Decisions = append(out.Decisions, domain.Decision{
			StudentID: student.StudentID,
			MentorID:  winner.Mentor.MentorID,
			Allocated: true,
			Reason:    domain.ReasonAllocated,
		})
	}
	return out
}

// sampleRow returns the first candidate for trace extras; stages record the
// join value both sides even when the set is about to empty.
func sampleRow(rows []domain.MatrixRow) domain.MatrixRow {
	if len(rows) == 0 {
		return domain.MatrixRow{}
	}
	return rows[0]
}

// commit consumes one unit of the mentor's capacity on the run's own pool
// copy and returns the committed state.
func commit(pool *domain.Pool, mentorID string) domain.Capacity {
	c := pool.Capacities[mentorID]
	c.AllocationsNew++
	pool.Capacities[mentorID] = c
	return c
}

// Replay re-runs one student against a frozen pool and returns the terminal
// reason plus the stage trace, for explainability tooling. The pool is
// cloned internally; the caller's copy is untouched.
func Replay(student domain.StudentRow, pool domain.Pool, policy domain.Policy) (domain.ReasonCode, []domain.TraceRecord) {
	out := Run(Input{Students: []domain.StudentRow{student}, Pool: pool, Policy: policy})
	if len(out.Decisions) == 0 {
		return "", nil
	}
	return out.Decisions[0].Reason, out.Trace
}
