package allocation

import (
	"reflect"
	"testing"

	"mentormatch/pkg/domain"
)

func row(mentorID string, key domain.JoinKey, c domain.Capacity) domain.MatrixRow {
	return domain.MatrixRow{
		Alias:    mentorID,
		Mentor:   domain.MentorIdentity{MentorID: mentorID, MentorName: "mentor " + mentorID},
		Key:      key,
		RowType:  domain.MentorNormal,
		Variant:  domain.VariantNormal,
		Capacity: c,
	}
}

func student(id string, key domain.JoinKey) domain.StudentRow {
	return domain.StudentRow{StudentID: id, Name: "student " + id, Key: key}
}

var baseKey = domain.JoinKey{
	Subject: 27, Gender: domain.GenderMale, Status: domain.StatusStudent,
	Center: 1, Finance: 0, School: domain.SchoolUnrestricted,
}

func TestCapacityScenarioSecondStudentRejected(t *testing.T) {
	pool := domain.NewPool([]domain.MatrixRow{
		row("EMP-1", baseKey, domain.Capacity{SpecialLimit: 1}),
	})
	studentKey := baseKey
	out := Run(Input{
		Students: []domain.StudentRow{student("S-1", studentKey), student("S-2", studentKey)},
		Pool:     pool,
		Policy:   domain.DefaultPolicy(),
	})

	if len(out.Allocations) != 1 {
		t.Fatalf("allocations = %d, want 1", len(out.Allocations))
	}
	first := out.Allocations[0]
	if first.MentorID != "EMP-1" || first.AllocationsNew != 1 || first.RemainingCapacity != 0 {
		t.Fatalf("first allocation = %+v", first)
	}
	if first.OccupancyRatio != 1 {
		t.Fatalf("occupancy after commit = %v, want 1", first.OccupancyRatio)
	}

	second := out.Decisions[1]
	if second.Allocated || second.Reason != domain.ReasonCapacityFull {
		t.Fatalf("second decision = %+v, want CAPACITY_FULL", second)
	}
}

func TestNaturalTieBreakPrefersEMP2OverEMP010(t *testing.T) {
	pool := domain.NewPool([]domain.MatrixRow{
		row("EMP-010", baseKey, domain.Capacity{SpecialLimit: 5}),
		row("EMP-2", baseKey, domain.Capacity{SpecialLimit: 5}),
	})
	out := Run(Input{
		Students: []domain.StudentRow{student("S-1", baseKey)},
		Pool:     pool,
		Policy:   domain.DefaultPolicy(),
	})
	if len(out.Allocations) != 1 || out.Allocations[0].MentorID != "EMP-2" {
		t.Fatalf("winner = %+v, want EMP-2", out.Allocations)
	}
}

func TestRankingPrefersLeastLoadedThenUntouched(t *testing.T) {
	pool := domain.NewPool([]domain.MatrixRow{
		row("EMP-1", baseKey, domain.Capacity{CoveredNow: 3, SpecialLimit: 4}), // 0.75 loaded
		row("EMP-2", baseKey, domain.Capacity{CoveredNow: 1, SpecialLimit: 4}), // 0.25 loaded
	})
	out := Run(Input{
		Students: []domain.StudentRow{student("S-1", baseKey), student("S-2", baseKey)},
		Pool:     pool,
		Policy:   domain.DefaultPolicy(),
	})
	if out.Allocations[0].MentorID != "EMP-2" {
		t.Fatalf("first winner = %s, want least-loaded EMP-2", out.Allocations[0].MentorID)
	}
	// After the commit EMP-2 sits at 0.5, still below EMP-1.
	if out.Allocations[1].MentorID != "EMP-2" {
		t.Fatalf("second winner = %s, want EMP-2 again", out.Allocations[1].MentorID)
	}
}

func TestStageFailureReasons(t *testing.T) {
	key := baseKey
	pool := domain.NewPool([]domain.MatrixRow{row("EMP-1", key, domain.Capacity{SpecialLimit: 3})})

	cases := []struct {
		name   string
		mutate func(*domain.StudentRow)
		want   domain.ReasonCode
	}{
		{"type", func(s *domain.StudentRow) { s.Track = domain.VariantSchool }, domain.ReasonTypeMismatch},
		{"group", func(s *domain.StudentRow) { s.Key.Subject = 99 }, domain.ReasonGroupMismatch},
		{"gender", func(s *domain.StudentRow) { s.Key.Gender = domain.GenderFemale }, domain.ReasonGenderMismatch},
		{"graduation_status", func(s *domain.StudentRow) { s.Key.Status = domain.StatusGraduate }, domain.ReasonGraduationStatus},
		{"center", func(s *domain.StudentRow) { s.Key.Center = 9 }, domain.ReasonCenterMismatch},
		{"finance", func(s *domain.StudentRow) { s.Key.Finance = 3 }, domain.ReasonFinanceMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := student("S-1", key)
			tc.mutate(&s)
			out := Run(Input{Students: []domain.StudentRow{s}, Pool: pool, Policy: domain.DefaultPolicy()})
			if len(out.Decisions) != 1 || out.Decisions[0].Reason != tc.want {
				t.Fatalf("reason = %v, want %v", out.Decisions[0].Reason, tc.want)
			}
		})
	}
}

func TestSchoolStageUnrestrictedOrExactMatch(t *testing.T) {
	restrictedKey := baseKey
	restrictedKey.School = 501
	pool := domain.NewPool([]domain.MatrixRow{
		row("EMP-1", restrictedKey, domain.Capacity{SpecialLimit: 3}),
	})

	matching := student("S-1", restrictedKey)
	other := student("S-2", baseKey)
	other.Key.School = 502

	out := Run(Input{Students: []domain.StudentRow{matching, other}, Pool: pool, Policy: domain.DefaultPolicy()})
	if !out.Decisions[0].Allocated {
		t.Fatalf("matching school student rejected: %+v", out.Decisions[0])
	}
	if out.Decisions[1].Reason != domain.ReasonSchoolStatus {
		t.Fatalf("reason = %v, want SCHOOL_STATUS_MISMATCH", out.Decisions[1].Reason)
	}
}

func TestTraceCompleteness(t *testing.T) {
	pool := domain.NewPool([]domain.MatrixRow{row("EMP-1", baseKey, domain.Capacity{SpecialLimit: 1})})
	bad := student("S-2", baseKey)
	bad.Key.Gender = domain.GenderFemale

	out := Run(Input{
		Students: []domain.StudentRow{student("S-1", baseKey), bad},
		Pool:     pool,
		Policy:   domain.DefaultPolicy(),
	})

	var s1, s2 []domain.TraceRecord
	for _, rec := range out.Trace {
		switch rec.StudentID {
		case "S-1":
			s1 = append(s1, rec)
		case "S-2":
			s2 = append(s2, rec)
		}
	}
	// Fully matched student: all eight stages, every one matched.
	if len(s1) != 8 {
		t.Fatalf("matched student trace = %d stages, want 8", len(s1))
	}
	for _, rec := range s1 {
		if !rec.Matched {
			t.Fatalf("stage %s unmatched for allocated student", rec.Stage)
		}
	}
	// Gender fails at stage 3: trace stops there, inclusive.
	if len(s2) != 3 {
		t.Fatalf("failed student trace = %d stages, want 3", len(s2))
	}
	last := s2[len(s2)-1]
	if last.Stage != "gender" || last.Matched || last.After != 0 {
		t.Fatalf("terminal trace record = %+v", last)
	}
}

func TestSchoolStageRecordsExtras(t *testing.T) {
	key := baseKey
	key.School = 501
	pool := domain.NewPool([]domain.MatrixRow{row("EMP-1", key, domain.Capacity{SpecialLimit: 1})})
	out := Run(Input{Students: []domain.StudentRow{student("S-1", key)}, Pool: pool, Policy: domain.DefaultPolicy()})

	for _, rec := range out.Trace {
		if rec.Stage == "school" {
			if rec.Extras["row_school"] != "501" || rec.Extras["student_school"] != "501" {
				t.Fatalf("school extras = %v", rec.Extras)
			}
			return
		}
	}
	t.Fatal("school stage trace missing")
}

func TestInputPoolNeverMutated(t *testing.T) {
	pool := domain.NewPool([]domain.MatrixRow{row("EMP-1", baseKey, domain.Capacity{SpecialLimit: 2})})
	_ = Run(Input{
		Students: []domain.StudentRow{student("S-1", baseKey)},
		Pool:     pool,
		Policy:   domain.DefaultPolicy(),
	})
	if pool.Capacities["EMP-1"].AllocationsNew != 0 {
		t.Fatal("caller's pool was mutated")
	}
}

func TestDualVariantsShareOneCapacityBudget(t *testing.T) {
	schoolKey := baseKey
	schoolKey.School = 501
	rows := []domain.MatrixRow{
		row("EMP-1", baseKey, domain.Capacity{SpecialLimit: 1}),
		row("EMP-1", schoolKey, domain.Capacity{SpecialLimit: 1}),
	}
	rows[1].Variant = domain.VariantSchool
	pool := domain.NewPool(rows)

	schoolStudent := student("S-2", schoolKey)
	out := Run(Input{
		Students: []domain.StudentRow{student("S-1", baseKey), schoolStudent},
		Pool:     pool,
		Policy:   domain.DefaultPolicy(),
	})
	if !out.Decisions[0].Allocated {
		t.Fatal("first student should win through the normal family")
	}
	if out.Decisions[1].Allocated {
		t.Fatal("capacity is shared across families; second win must be refused")
	}
	if out.Decisions[1].Reason != domain.ReasonCapacityFull {
		t.Fatalf("reason = %v, want CAPACITY_FULL", out.Decisions[1].Reason)
	}
}

func TestRunDeterminism(t *testing.T) {
	rows := []domain.MatrixRow{
		row("EMP-3", baseKey, domain.Capacity{SpecialLimit: 2}),
		row("EMP-1", baseKey, domain.Capacity{SpecialLimit: 2}),
		row("EMP-2", baseKey, domain.Capacity{SpecialLimit: 2}),
	}
	students := []domain.StudentRow{
		student("S-1", baseKey), student("S-2", baseKey), student("S-3", baseKey),
	}
	a := Run(Input{Students: students, Pool: domain.NewPool(rows), Policy: domain.DefaultPolicy()})
	b := Run(Input{Students: students, Pool: domain.NewPool(rows), Policy: domain.DefaultPolicy()})

	if !reflect.DeepEqual(a.Allocations, b.Allocations) {
		t.Fatal("allocations differ between identical runs")
	}
	if !reflect.DeepEqual(a.Trace, b.Trace) {
		t.Fatal("traces differ between identical runs")
	}
	if !reflect.DeepEqual(a.Pool.Capacities, b.Pool.Capacities) {
		t.Fatal("pools differ between identical runs")
	}
}

func TestReplayReportsTerminalReason(t *testing.T) {
	pool := domain.NewPool([]domain.MatrixRow{row("EMP-1", baseKey, domain.Capacity{SpecialLimit: 1})})
	s := student("S-1", baseKey)
	s.Key.Finance = 3
	reason, trace := Replay(s, pool, domain.DefaultPolicy())
	if reason != domain.ReasonFinanceMismatch {
		t.Fatalf("reason = %v", reason)
	}
	if len(trace) != 6 {
		t.Fatalf("trace stages = %d, want 6", len(trace))
	}
}
