package domain

// MentorIdentity names a mentor. MentorID is the natural key for ranking
// and capacity bookkeeping.
type MentorIdentity struct {
	MentorID    string `json:"mentor_id"`
	MentorName  string `json:"mentor_name"`
	ManagerName string `json:"manager_name"`
}

// Capacity tracks a mentor's load. All fields are non-negative.
type Capacity struct {
	CoveredNow     int `json:"covered_now"`
	SpecialLimit   int `json:"special_limit"`
	AllocationsNew int `json:"allocations_new"`
}

// OccupancyRatio reports load as (covered + new) over the declared limit.
// The denominator is floored at 1 so a mentor with zero declared limit never
// divides by zero and reads as saturated once any allocation lands.
func (c Capacity) OccupancyRatio() float64 {
	limit := c.SpecialLimit
	if limit < 1 {
		limit = 1
	}
	return float64(c.CoveredNow+c.AllocationsNew) / float64(limit)
}

// Remaining reports how many further allocations the mentor can absorb.
func (c Capacity) Remaining() int {
	r := c.SpecialLimit - c.CoveredNow - c.AllocationsNew
	if r < 0 {
		return 0
	}
	return r
}

// MatrixRow is one fully-resolved eligibility record. Rows are created only
// by the matrix builder and are immutable facts once built.
type MatrixRow struct {
	Alias       string         `json:"alias"`
	Mentor      MentorIdentity `json:"mentor"`
	Key         JoinKey        `json:"key"`
	RowType     MentorType     `json:"row_type"`
	Variant     Variant        `json:"variant"`
	MentorRowID int            `json:"mentor_row_id"`
	Capacity    Capacity       `json:"capacity"`
}

// RowTypeDisplay returns the human-facing row type string.
func (r MatrixRow) RowTypeDisplay() string { return r.RowType.Display() }

// StudentRow is a student normalized into the join vocabulary.
type StudentRow struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Key       JoinKey `json:"key"`
	Track     Variant `json:"track"`
}

// TraceRecord captures one filter stage for one student. Append-only.
type TraceRecord struct {
	StudentID string            `json:"student_id"`
	Stage     string            `json:"stage"`
	Column    string            `json:"column"`
	Before    int               `json:"candidates_before"`
	After     int               `json:"candidates_after"`
	Matched   bool              `json:"matched"`
	Extras    map[string]string `json:"extras,omitempty"`
}

// AllocationDecision is the terminal record of one student's pipeline.
// Capacity figures reflect the committed state, after the increment.
type AllocationDecision struct {
	StudentID         string     `json:"student_id"`
	MentorID          string     `json:"mentor_id"`
	Reason            ReasonCode `json:"reason"`
	OccupancyRatio    float64    `json:"occupancy_ratio"`
	AllocationsNew    int        `json:"allocations_new"`
	RemainingCapacity int        `json:"remaining_capacity"`
	Counter           int        `json:"counter"`
}

// Decision is one line of the per-student log: every student appears exactly
// once, allocated or not, with its terminal reason attached.
type Decision struct {
	StudentID string     `json:"student_id"`
	MentorID  string     `json:"mentor_id,omitempty"`
	Allocated bool       `json:"allocated"`
	Reason    ReasonCode `json:"reason"`
}

// Pool is the candidate side of an allocation run: the matrix rows plus the
// live capacity ledger. Capacity is keyed by mentor id and shared across a
// dual mentor's row families, so a win through either alias consumes the one
// budget.
type Pool struct {
	Rows       []MatrixRow         `json:"rows"`
	Capacities map[string]Capacity `json:"capacities"`
}

// NewPool builds a pool from matrix rows, seeding the ledger from each
// mentor's row capacity.
func NewPool(rows []MatrixRow) Pool {
	caps := make(map[string]Capacity, len(rows))
	for _, r := range rows {
		if _, ok := caps[r.Mentor.MentorID]; !ok {
			caps[r.Mentor.MentorID] = r.Capacity
		}
	}
	return Pool{Rows: rows, Capacities: caps}
}

// Clone returns a pool whose ledger can be mutated without touching the
// receiver. Rows are immutable and shared.
func (p Pool) Clone() Pool {
	caps := make(map[string]Capacity, len(p.Capacities))
	for k, v := range p.Capacities {
		caps[k] = v
	}
	return Pool{Rows: p.Rows, Capacities: caps}
}

// Remaining reports the live remaining capacity for a mentor.
func (p Pool) Remaining(mentorID string) int {
	return p.Capacities[mentorID].Remaining()
}
