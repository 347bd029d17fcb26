package domain

// MentorRecord is one raw mentor-roster row after boundary mapping and
// value coercion, before expansion. GroupTokens and SchoolNames carry the
// original display text; resolution happens inside the matrix builder.
type MentorRecord struct {
	RowID       int              `json:"row_id"`
	EmployeeID  string           `json:"employee_id"`
	Name        string           `json:"name"`
	ManagerName string           `json:"manager_name"`
	GroupTokens []string         `json:"group_tokens"`
	Gender      Gender           `json:"gender"`
	Status      GraduationStatus `json:"status"`
	PostalCode  string           `json:"postal_code"`
	CoveredNow  int              `json:"covered_now"`
	Limit       int              `json:"special_limit"`
	SchoolNames []string         `json:"school_names"`
	SchoolCount int              `json:"school_count"`
	Eligible    bool             `json:"eligible"`
	Finance     int              `json:"finance"`
	Center      int              `json:"center"`
}

// HasSchoolBinding reports whether any school-name slot is populated.
// Restriction is determined by presence of a value, not by whether the
// value later resolves in the school reference.
func (m MentorRecord) HasSchoolBinding() bool {
	for _, s := range m.SchoolNames {
		if s != "" {
			return true
		}
	}
	return false
}

// Capacity returns the roster-declared capacity with no new allocations.
func (m MentorRecord) Capacity() Capacity {
	return Capacity{CoveredNow: m.CoveredNow, SpecialLimit: m.Limit}
}

// Identity returns the mentor's identity triple.
func (m MentorRecord) Identity() MentorIdentity {
	return MentorIdentity{MentorID: m.EmployeeID, MentorName: m.Name, ManagerName: m.ManagerName}
}

// SchoolRef is one school reference row mapping a code to its display name.
type SchoolRef struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}
