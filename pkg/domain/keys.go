// Package domain defines the typed records, join vocabulary, policy values,
// and diagnostics primitives shared by the matching engines.
package domain

// Gender is the normalized gender dimension of the join key.
type Gender int

// Gender codes. Unknown tokens coerce to GenderMale at the mapping boundary.
const (
	GenderMale   Gender = 1
	GenderFemale Gender = 2
)

// GraduationStatus is the normalized graduation dimension of the join key.
type GraduationStatus int

// Graduation status codes.
const (
	StatusStudent  GraduationStatus = 1
	StatusGraduate GraduationStatus = 2
)

// SchoolUnrestricted marks a matrix row that accepts students from any school.
const SchoolUnrestricted = 0

// JoinKey is the six-field tuple matching a student to a matrix row.
// It is a pure value: equality and ordering are structural.
type JoinKey struct {
	Subject int              `json:"subject_code"`
	Gender  Gender           `json:"gender"`
	Status  GraduationStatus `json:"status"`
	Center  int              `json:"center"`
	Finance int              `json:"finance"`
	School  int              `json:"school_code"`
}

// Compare orders join keys field by field in declaration order.
func (k JoinKey) Compare(other JoinKey) int {
	pairs := [6][2]int{
		{k.Subject, other.Subject},
		{int(k.Gender), int(other.Gender)},
		{int(k.Status), int(other.Status)},
		{k.Center, other.Center},
		{k.Finance, other.Finance},
		{k.School, other.School},
	}
	for _, p := range pairs {
		switch {
		case p[0] < p[1]:
			return -1
		case p[0] > p[1]:
			return 1
		}
	}
	return 0
}

// MentorType classifies a mentor by its alias and school bindings.
type MentorType string

// Mentor classifications derived during matrix building.
const (
	MentorNormal MentorType = "normal"
	MentorSchool MentorType = "school"
	MentorDual   MentorType = "dual"
)

// Display returns the human-facing label for the mentor type.
func (t MentorType) Display() string {
	switch t {
	case MentorNormal:
		return "Normal"
	case MentorSchool:
		return "School"
	case MentorDual:
		return "Dual"
	default:
		return string(t)
	}
}

// Variant identifies which row family of a mentor a matrix row belongs to.
// Dual mentors emit rows under both variants, each with its own alias.
type Variant string

// Row family variants.
const (
	// VariantAny on a student means no declared track preference.
	VariantAny    Variant = ""
	VariantNormal Variant = "normal"
	VariantSchool Variant = "school"
)

// ReasonCode is the closed set of terminal outcomes for a student's pipeline.
type ReasonCode string

// Pipeline outcome codes, one per filter stage plus the success code.
const (
	ReasonAllocated        ReasonCode = "ALLOCATED"
	ReasonTypeMismatch     ReasonCode = "TYPE_MISMATCH"
	ReasonGroupMismatch    ReasonCode = "GROUP_MISMATCH"
	ReasonGenderMismatch   ReasonCode = "GENDER_MISMATCH"
	ReasonGraduationStatus ReasonCode = "GRADUATION_STATUS_MISMATCH"
	ReasonCenterMismatch   ReasonCode = "CENTER_MISMATCH"
	ReasonFinanceMismatch  ReasonCode = "FINANCE_MISMATCH"
	ReasonSchoolStatus     ReasonCode = "SCHOOL_STATUS_MISMATCH"
	ReasonCapacityFull     ReasonCode = "CAPACITY_FULL"
)
