package applicant

import "github.com/liamcoop/scholarship/rules"

// Attribute names as they appear in rule conditions
const (
	FieldCGPA                  = "cgpa"
	FieldFamilyIncome          = "family_income"
	FieldCoCurricularScore     = "co_curricular_score"
	FieldCommunityServiceHours = "community_service_hours"
	FieldCurrentSemester       = "current_semester"
	FieldDisciplinaryActions   = "disciplinary_actions"
)

// Fields returns every attribute an applicant contributes to the facts
func Fields() []string {
	return []string{
		FieldCGPA,
		FieldFamilyIncome,
		FieldCoCurricularScore,
		FieldCommunityServiceHours,
		FieldCurrentSemester,
		FieldDisciplinaryActions,
	}
}

// Applicant holds the attributes a scholarship decision is based on
type Applicant struct {
	ID                    string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name                  string  `json:"name,omitempty" yaml:"name,omitempty"`
	CGPA                  float64 `json:"cgpa" yaml:"cgpa"`
	FamilyIncome          float64 `json:"family_income" yaml:"family_income"`
	CoCurricularScore     int     `json:"co_curricular_score" yaml:"co_curricular_score"`
	CommunityServiceHours int     `json:"community_service_hours" yaml:"community_service_hours"`
	CurrentSemester       int     `json:"current_semester" yaml:"current_semester"`
	DisciplinaryActions   int     `json:"disciplinary_actions" yaml:"disciplinary_actions"`
}

// Defaults returns the values the intake form starts with
func Defaults() Applicant {
	return Applicant{
		CGPA:                  3.5,
		FamilyIncome:          5000,
		CoCurricularScore:     70,
		CommunityServiceHours: 10,
		CurrentSemester:       3,
		DisciplinaryActions:   0,
	}
}

// Facts converts the applicant into the fact mapping rules are evaluated against
func (a Applicant) Facts() rules.Facts {
	return rules.Facts{
		FieldCGPA:                  a.CGPA,
		FieldFamilyIncome:          a.FamilyIncome,
		FieldCoCurricularScore:     float64(a.CoCurricularScore),
		FieldCommunityServiceHours: float64(a.CommunityServiceHours),
		FieldCurrentSemester:       float64(a.CurrentSemester),
		FieldDisciplinaryActions:   float64(a.DisciplinaryActions),
	}
}

// activation is the CEL variable binding for the applicant
func (a Applicant) activation() map[string]any {
	return map[string]any{
		FieldCGPA:                  a.CGPA,
		FieldFamilyIncome:          a.FamilyIncome,
		FieldCoCurricularScore:     int64(a.CoCurricularScore),
		FieldCommunityServiceHours: int64(a.CommunityServiceHours),
		FieldCurrentSemester:       int64(a.CurrentSemester),
		FieldDisciplinaryActions:   int64(a.DisciplinaryActions),
	}
}
