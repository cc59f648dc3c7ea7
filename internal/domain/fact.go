package domain

import "fmt"

// FactRef names a profile or activity fact that can complete a task on its own.
type FactRef string

const (
	FactWaiverSigned          FactRef = "waiver_signed"
	FactMedicalFormSubmitted  FactRef = "medical_form_submitted"
	FactTravelFormSubmitted   FactRef = "travel_form_submitted"
	FactProfileComplete       FactRef = "profile_complete"
	FactDepositPaid           FactRef = "deposit_paid"
	FactPaidInFull            FactRef = "paid_in_full"
	FactCommunityIntroduction FactRef = "community_introduction"
	FactSocialHandle          FactRef = "social_handle"
)

// AllFactRefs lists every known fact.
func AllFactRefs() []FactRef {
	return []FactRef{
		FactWaiverSigned,
		FactMedicalFormSubmitted,
		FactTravelFormSubmitted,
		FactProfileComplete,
		FactDepositPaid,
		FactPaidInFull,
		FactCommunityIntroduction,
		FactSocialHandle,
	}
}

func (f FactRef) Valid() bool {
	for _, known := range AllFactRefs() {
		if f == known {
			return true
		}
	}
	return false
}

// ParseFactRef converts a stored field name into a FactRef, rejecting names
// that do not correspond to a known fact.
func ParseFactRef(s string) (FactRef, error) {
	f := FactRef(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown auto-complete fact %q", s)
	}
	return f, nil
}

// ProfileFacts is the read-only snapshot of profile and activity data the
// engine evaluates against. Callers resolve it once per session.
type ProfileFacts struct {
	WaiverSigned         bool
	MedicalFormSubmitted bool
	TravelFormSubmitted  bool
	ProfileComplete      bool
	Payment              PaymentMilestone
	SocialHandle         string
	CommunityPosts       int
	StreakDays           int
}
