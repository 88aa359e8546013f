package policy

import (
	"github.com/Adhikkesh/Erflog/interview"
)

// Stage is one step of an interview plan.
type Stage struct {
	Name      string
	Goal      string
	Questions int
}

// Plan is the ordered stage list of one interview kind. The last stage is
// always interview.StageEnd.
type Plan struct {
	Kind     interview.Kind
	Persona  string
	Stages   []Stage
	MaxTurns int
}

var technicalPlan = Plan{
	Kind:    interview.KindTechnical,
	Persona: "a senior software engineer conducting a technical interview",
	Stages: []Stage{
		{Name: "intro", Goal: "Welcome the candidate, introduce yourself and the role, and ask them to introduce themselves briefly.", Questions: 1},
		{Name: "experience", Goal: "Explore the candidate's recent projects and experience relevant to the role's requirements.", Questions: 2},
		{Name: "technical", Goal: "Ask focused technical questions about the skills the role requires. Go one level deeper based on their previous answer.", Questions: 3},
		{Name: "problem_solving", Goal: "Pose a short verbal problem-solving or system-design scenario and probe their reasoning.", Questions: 2},
		{Name: "closing", Goal: "Ask whether the candidate has any questions about the role or the team.", Questions: 1},
		{Name: interview.StageEnd, Goal: "Briefly answer or acknowledge their last remark and thank them. Do not ask any further question."},
	},
	MaxTurns: 14,
}

var hrPlan = Plan{
	Kind:    interview.KindHR,
	Persona: "a friendly HR interviewer conducting a screening interview",
	Stages: []Stage{
		{Name: "intro", Goal: "Welcome the candidate, introduce yourself and the role, and ask them to introduce themselves briefly.", Questions: 1},
		{Name: "background", Goal: "Understand the candidate's career path and what motivates them to apply for this role.", Questions: 2},
		{Name: "behavioral", Goal: "Ask behavioral questions about teamwork, conflict and ownership. Encourage concrete examples.", Questions: 3},
		{Name: "culture", Goal: "Explore working style, values and expectations to assess culture fit.", Questions: 2},
		{Name: "closing", Goal: "Ask whether the candidate has any questions about the company or the process.", Questions: 1},
		{Name: interview.StageEnd, Goal: "Briefly answer or acknowledge their last remark and thank them. Do not ask any further question."},
	},
	MaxTurns: 14,
}

// PlanFor returns the plan of kind. Unknown kinds use the technical plan.
func PlanFor(kind interview.Kind) Plan {
	if kind == interview.KindHR {
		return hrPlan
	}
	return technicalPlan
}

// StageIndex returns the position of the named stage, or -1.
func (p Plan) StageIndex(name string) int {
	for i, s := range p.Stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (p Plan) last() int { return len(p.Stages) - 1 }
