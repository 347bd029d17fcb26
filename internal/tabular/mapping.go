// Package tabular maps raw header-plus-rows tables onto the typed roster
// records. Column binding is explicit and alias-driven: every logical column
// names its accepted Persian and latin headers, missing required columns
// raise ErrMissingColumn, and malformed values coerce to policy defaults
// with a logged violation instead of dropping the row.
package tabular

import (
	"strings"

	"mentormatch/internal/crosswalk"
	"mentormatch/internal/normalize"
	"mentormatch/pkg/domain"
)

// Table is one raw input sheet: a header row and data rows of display text.
type Table struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type columns struct {
	table string
	index map[string]int
	order []string
}

func indexHeader(t Table) columns {
	c := columns{table: t.Name, index: make(map[string]int, len(t.Header))}
	for i, h := range t.Header {
		key := normalize.Key(h)
		if _, dup := c.index[key]; dup {
			continue // first binding wins
		}
		c.index[key] = i
		c.order = append(c.order, key)
	}
	return c
}

// require binds the first matching alias or fails with the canonical name.
func (c columns) require(canonical string, aliases ...string) (int, error) {
	if i, ok := c.optional(canonical, aliases...); ok {
		return i, nil
	}
	return 0, domain.ErrMissingColumn{Table: c.table, Column: canonical}
}

func (c columns) optional(canonical string, aliases ...string) (int, bool) {
	for _, name := range append([]string{canonical}, aliases...) {
		if i, ok := c.index[normalize.Key(name)]; ok {
			return i, true
		}
	}
	return -1, false
}

// prefixed returns every column whose normalized header starts with one of
// the prefixes, in header order. Used for the repeated school-name columns.
func (c columns) prefixed(prefixes ...string) []int {
	var out []int
	for _, key := range c.order {
		for _, p := range prefixes {
			if strings.HasPrefix(key, normalize.Key(p)) {
				out = append(out, c.index[key])
				break
			}
		}
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// MapMentors binds the mentor roster table. Shape failures (missing
// columns) return an error; value failures coerce and log.
func MapMentors(t Table, policy domain.Policy) ([]domain.MentorRecord, domain.Result, error) {
	var result domain.Result
	cols := indexHeader(t)

	idCol, err := cols.require("employee_id", "کد پرسنلی", "کد کارمندی")
	if err != nil {
		return nil, result, err
	}
	groupCol, err := cols.require("groups", "group", "گروه", "گروه ها")
	if err != nil {
		return nil, result, err
	}
	genderCol, err := cols.require("gender", "جنسیت")
	if err != nil {
		return nil, result, err
	}
	coveredCol, err := cols.require("covered_now", "تحت پوشش")
	if err != nil {
		return nil, result, err
	}
	limitCol, err := cols.require("special_limit", "سقف ویژه")
	if err != nil {
		return nil, result, err
	}

	nameCol, _ := cols.optional("name", "نام")
	managerCol, _ := cols.optional("manager_name", "manager", "نام مدیر")
	statusCol, hasStatus := cols.optional("status", "وضعیت تحصیلی", "وضعیت")
	postalCol, _ := cols.optional("postal_code", "کد پستی")
	eligibleCol, hasEligible := cols.optional("eligible", "مجاز")
	financeCol, hasFinance := cols.optional("finance", "مالی")
	centerCol, hasCenter := cols.optional("center", "مرکز")
	schoolCols := cols.prefixed("school", "مدرسه")

	mentors := make([]domain.MentorRecord, 0, len(t.Rows))
	for n, row := range t.Rows {
		m := domain.MentorRecord{
			RowID:       n + 1,
			EmployeeID:  normalize.Key(cell(row, idCol)),
			Name:        cell(row, nameCol),
			ManagerName: cell(row, managerCol),
			GroupTokens: splitTokens(cell(row, groupCol)),
			PostalCode:  cell(row, postalCol),
			Eligible:    true,
		}
		m.Gender = coerceGender(cell(row, genderCol), t.Name, m.EmployeeID, &result)
		if hasStatus {
			m.Status = coerceStatus(cell(row, statusCol), t.Name, m.EmployeeID, &result)
		} else {
			m.Status = domain.StatusStudent
		}
		m.CoveredNow = coerceInt(cell(row, coveredCol), 0, t.Name, "covered_now", m.EmployeeID, &result)
		m.Limit = coerceInt(cell(row, limitCol), 0, t.Name, "special_limit", m.EmployeeID, &result)
		if hasEligible {
			m.Eligible = coerceBool(cell(row, eligibleCol))
		}
		if hasFinance {
			m.Finance = coerceFinance(cell(row, financeCol), policy, t.Name, m.EmployeeID, &result)
		} else if len(policy.FinanceVariants) > 0 {
			m.Finance = policy.FinanceVariants[0]
		}
		if hasCenter {
			m.Center = coerceCenter(cell(row, centerCol), policy, t.Name, m.EmployeeID, &result)
		}
		for _, sc := range schoolCols {
			name := cell(row, sc)
			m.SchoolNames = append(m.SchoolNames, name)
			if name != "" {
				m.SchoolCount++
			}
		}
		mentors = append(mentors, m)
	}
	return mentors, result, nil
}

// MapStudents binds the student table. Group tokens resolve through the
// crosswalk; a student with no resolvable subject is dropped with a warning
// because it can never join the matrix.
func MapStudents(t Table, resolver *crosswalk.Resolver, policy domain.Policy) ([]domain.StudentRow, domain.Result, error) {
	var result domain.Result
	cols := indexHeader(t)

	idCol, err := cols.require("student_id", "کد دانش آموز", "کد دانش‌آموز")
	if err != nil {
		return nil, result, err
	}
	groupCol, err := cols.require("group", "groups", "گروه")
	if err != nil {
		return nil, result, err
	}
	genderCol, err := cols.require("gender", "جنسیت")
	if err != nil {
		return nil, result, err
	}

	nameCol, _ := cols.optional("name", "نام")
	statusCol, hasStatus := cols.optional("status", "وضعیت تحصیلی", "وضعیت")
	centerCol, hasCenter := cols.optional("center", "مرکز")
	financeCol, hasFinance := cols.optional("finance", "مالی")
	schoolCol, hasSchool := cols.optional("school_code", "کد مدرسه")
	trackCol, hasTrack := cols.optional("track", "نوع")

	students := make([]domain.StudentRow, 0, len(t.Rows))
	for _, row := range t.Rows {
		s := domain.StudentRow{
			StudentID: normalize.Key(cell(row, idCol)),
			Name:      cell(row, nameCol),
		}

		token := cell(row, groupCol)
		pairs, ok := resolver.ExpandGroupToken(token)
		if !ok || len(pairs) == 0 {
			result.Add(domain.Violation{
				Rule: "unresolved_student_group", Severity: domain.SeverityWarn,
				Message: "student group token did not resolve", Subject: token, SubjectID: s.StudentID,
			})
			continue
		}
		s.Key.Subject = pairs[0].Code

		s.Key.Gender = coerceGender(cell(row, genderCol), t.Name, s.StudentID, &result)
		if hasStatus {
			s.Key.Status = coerceStatus(cell(row, statusCol), t.Name, s.StudentID, &result)
		} else {
			s.Key.Status = domain.StatusStudent
		}
		if hasCenter {
			s.Key.Center = coerceCenter(cell(row, centerCol), policy, t.Name, s.StudentID, &result)
		}
		if hasFinance {
			s.Key.Finance = coerceFinance(cell(row, financeCol), policy, t.Name, s.StudentID, &result)
		} else if len(policy.FinanceVariants) > 0 {
			s.Key.Finance = policy.FinanceVariants[0]
		}
		if hasSchool {
			raw := cell(row, schoolCol)
			if raw == "" && policy.SchoolCodeEmptyAsZero {
				s.Key.School = domain.SchoolUnrestricted
			} else if raw != "" {
				s.Key.School = coerceInt(raw, domain.SchoolUnrestricted, t.Name, "school_code", s.StudentID, &result)
			}
		}
		if hasTrack {
			s.Track = coerceTrack(cell(row, trackCol), t.Name, s.StudentID, &result)
		}
		students = append(students, s)
	}
	return students, result, nil
}

// MapSchools binds the school reference sheet.
func MapSchools(t Table) ([]domain.SchoolRef, domain.Result, error) {
	var result domain.Result
	cols := indexHeader(t)

	codeCol, err := cols.require("code", "کد", "کد مدرسه")
	if err != nil {
		return nil, result, err
	}
	nameCol, err := cols.require("name", "نام", "نام مدرسه")
	if err != nil {
		return nil, result, err
	}

	refs := make([]domain.SchoolRef, 0, len(t.Rows))
	for _, row := range t.Rows {
		code, ok := normalize.Int(cell(row, codeCol))
		if !ok {
			result.Add(domain.Violation{
				Rule: "bad_school_code", Severity: domain.SeverityWarn,
				Message: "school code is not numeric", Subject: cell(row, codeCol),
			})
			continue
		}
		refs = append(refs, domain.SchoolRef{Code: code, Name: cell(row, nameCol)})
	}
	return refs, result, nil
}

// MapGroups binds the subject reference sheet into crosswalk entries.
func MapGroups(t Table) ([]crosswalk.Entry, domain.Result, error) {
	var result domain.Result
	cols := indexHeader(t)

	nameCol, err := cols.require("name", "نام", "نام گروه")
	if err != nil {
		return nil, result, err
	}
	codeCol, err := cols.require("code", "کد", "کد گروه")
	if err != nil {
		return nil, result, err
	}
	bucketCol, _ := cols.optional("bucket", "دسته")

	entries := make([]crosswalk.Entry, 0, len(t.Rows))
	for _, row := range t.Rows {
		code, ok := normalize.Int(cell(row, codeCol))
		if !ok {
			result.Add(domain.Violation{
				Rule: "bad_group_code", Severity: domain.SeverityWarn,
				Message: "group code is not numeric", Subject: cell(row, nameCol),
			})
			continue
		}
		entries = append(entries, crosswalk.Entry{
			Name:   cell(row, nameCol),
			Code:   code,
			Bucket: cell(row, bucketCol),
		})
	}
	return entries, result, nil
}

// splitTokens splits a multi-group cell on the separators the rosters use.
func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '،' || r == ';' || r == '؛' || r == '/'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func coerceGender(raw, table, subjectID string, result *domain.Result) domain.Gender {
	switch normalize.Key(raw) {
	case "1", "مرد", "male", "m", "آقا":
		return domain.GenderMale
	case "2", "زن", "female", "f", "خانم":
		return domain.GenderFemale
	}
	result.Add(domain.Violation{
		Rule: "gender_default", Severity: domain.SeverityLog,
		Message: "unrecognized gender value, defaulted to male",
		Subject: table, SubjectID: subjectID,
	})
	return domain.GenderMale
}

func coerceStatus(raw, table, subjectID string, result *domain.Result) domain.GraduationStatus {
	switch normalize.Key(raw) {
	case "1", "دانش آموز", "student", "محصل":
		return domain.StatusStudent
	case "2", "فارغ التحصیل", "graduate", "فارغ":
		return domain.StatusGraduate
	}
	result.Add(domain.Violation{
		Rule: "status_default", Severity: domain.SeverityLog,
		Message: "unrecognized graduation status, defaulted to student",
		Subject: table, SubjectID: subjectID,
	})
	return domain.StatusStudent
}

func coerceFinance(raw string, policy domain.Policy, table, subjectID string, result *domain.Result) int {
	fallback := 0
	if len(policy.FinanceVariants) > 0 {
		fallback = policy.FinanceVariants[0]
	}
	n, ok := normalize.Int(raw)
	if ok {
		for _, v := range policy.FinanceVariants {
			if n == v {
				return n
			}
		}
	}
	if raw != "" {
		result.Add(domain.Violation{
			Rule: "finance_default", Severity: domain.SeverityLog,
			Message: "finance value outside policy variants, defaulted",
			Subject: table, SubjectID: subjectID,
		})
	}
	return fallback
}

func coerceCenter(raw string, policy domain.Policy, table, subjectID string, result *domain.Result) int {
	if n, ok := normalize.Int(raw); ok && normalize.Key(raw) == normalize.Digits(raw) {
		return n
	}
	if id, ok := policy.CenterID(normalize.Key(raw)); ok {
		return id
	}
	result.Add(domain.Violation{
		Rule: "center_default", Severity: domain.SeverityLog,
		Message: "unmapped center name, defaulted to zero",
		Subject: table, SubjectID: subjectID,
	})
	return 0
}

func coerceTrack(raw, table, subjectID string, result *domain.Result) domain.Variant {
	switch normalize.Key(raw) {
	case "":
		return domain.VariantAny
	case "normal", "عادی":
		return domain.VariantNormal
	case "school", "مدرسه", "مدرسه ای":
		return domain.VariantSchool
	}
	result.Add(domain.Violation{
		Rule: "track_default", Severity: domain.SeverityLog,
		Message: "unrecognized track value, defaulted to any",
		Subject: table, SubjectID: subjectID,
	})
	return domain.VariantAny
}

func coerceInt(raw string, fallback int, table, column, subjectID string, result *domain.Result) int {
	if n, ok := normalize.Int(raw); ok {
		return n
	}
	if raw != "" {
		result.Add(domain.Violation{
			Rule: "numeric_default", Severity: domain.SeverityLog,
			Message: "non-numeric " + column + " value, defaulted",
			Subject: table, SubjectID: subjectID,
		})
	}
	return fallback
}

func coerceBool(raw string) bool {
	switch normalize.Key(raw) {
	case "", "1", "true", "yes", "بله", "مجاز":
		return true
	}
	return false
}
