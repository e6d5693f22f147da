package models

// Role is the access level carried in JWT claims.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionOpenText       QuestionType = "open_text"
)

type TestType string

const (
	TestHinted       TestType = "hinted"        // practice tests with hints, never gate progress
	TestSectionFinal TestType = "section_final" // final test for a single section
	TestGlobalFinal  TestType = "global_final"  // cumulative test for an entire topic
)

type SubsectionType string

const (
	SubsectionText  SubsectionType = "text"
	SubsectionVideo SubsectionType = "video"
	SubsectionPDF   SubsectionType = "pdf"
)

type ProgressStatus string

const (
	ProgressStarted    ProgressStatus = "started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

type GroupMemberStatus string

const (
	MemberActive   GroupMemberStatus = "active"
	MemberInactive GroupMemberStatus = "inactive"
)
