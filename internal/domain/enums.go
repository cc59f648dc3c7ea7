package domain

type StageKey string

const (
	StagePreRegistration StageKey = "pre_registration"
	StagePreTravel       StageKey = "pre_travel"
	StageFinalPrep       StageKey = "final_prep"
	StageOnlineProgram   StageKey = "online_program"
	StageInPersonProgram StageKey = "in_person_program"
	StagePostProgram     StageKey = "post_program"
)

// AllStageKeys returns every lifecycle stage in lifecycle order.
func AllStageKeys() []StageKey {
	return []StageKey{
		StagePreRegistration,
		StagePreTravel,
		StageFinalPrep,
		StageOnlineProgram,
		StageInPersonProgram,
		StagePostProgram,
	}
}

func (k StageKey) Valid() bool {
	switch k {
	case StagePreRegistration, StagePreTravel, StageFinalPrep,
		StageOnlineProgram, StageInPersonProgram, StagePostProgram:
		return true
	}
	return false
}

// IsLive reports whether the stage is one of the program windows in which
// sessions run.
func (k StageKey) IsLive() bool {
	return k == StageOnlineProgram || k == StageInPersonProgram
}

type CohortType string

const (
	CohortStandard  CohortType = "standard"
	CohortExecutive CohortType = "executive"
	CohortImmersion CohortType = "immersion"
)

// ValidCohortTypes is the canonical set of accepted cohort type strings.
var ValidCohortTypes = map[string]bool{
	"standard": true, "executive": true, "immersion": true,
}

// SkipsOnlineProgram reports whether the cohort goes straight into the
// in-person program on the start date. Unknown cohorts keep the online window.
func (c CohortType) SkipsOnlineProgram() bool {
	switch c {
	case CohortImmersion:
		return true
	case CohortStandard, CohortExecutive:
		return false
	default:
		return false
	}
}

// Normalize maps unknown cohort values onto the standard cohort.
func (c CohortType) Normalize() CohortType {
	switch c {
	case CohortStandard, CohortExecutive, CohortImmersion:
		return c
	default:
		return CohortStandard
	}
}

type ProgressStatus string

const (
	ProgressCompleted ProgressStatus = "completed"
	ProgressPending   ProgressStatus = "pending"
)

type PaymentMilestone string

const (
	PaymentNone       PaymentMilestone = "none"
	PaymentDeposit    PaymentMilestone = "deposit"
	PaymentPaidInFull PaymentMilestone = "paid_in_full"
)

func (p PaymentMilestone) rank() int {
	switch p {
	case PaymentDeposit:
		return 1
	case PaymentPaidInFull:
		return 2
	default:
		return 0
	}
}

// AtLeast reports whether p has reached milestone m.
func (p PaymentMilestone) AtLeast(m PaymentMilestone) bool {
	return p.rank() >= m.rank()
}

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionLive      SessionStatus = "live"
	SessionEnded     SessionStatus = "ended"
)
