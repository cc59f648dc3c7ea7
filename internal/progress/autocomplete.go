package progress

import "github.com/alexanderramin/journey/internal/domain"

// CategoryProgress counts checklist items in one category for one user.
type CategoryProgress struct {
	Total   int
	Checked int
}

// Complete is true only for a populated category with every item checked.
// An empty category is never complete.
func (p CategoryProgress) Complete() bool {
	return p.Total >= 1 && p.Checked == p.Total
}

// FactSatisfied evaluates one named fact against the snapshot. Facts the
// engine does not know about are never satisfied.
func FactSatisfied(fact domain.FactRef, facts domain.ProfileFacts) bool {
	switch fact {
	case domain.FactWaiverSigned:
		return facts.WaiverSigned
	case domain.FactMedicalFormSubmitted:
		return facts.MedicalFormSubmitted
	case domain.FactTravelFormSubmitted:
		return facts.TravelFormSubmitted
	case domain.FactProfileComplete:
		return facts.ProfileComplete
	case domain.FactDepositPaid:
		return facts.Payment.AtLeast(domain.PaymentDeposit)
	case domain.FactPaidInFull:
		return facts.Payment.AtLeast(domain.PaymentPaidInFull)
	case domain.FactCommunityIntroduction:
		return facts.CommunityPosts >= 1
	case domain.FactSocialHandle:
		return facts.SocialHandle != ""
	default:
		return false
	}
}

// CategoryProgressFor tallies items per category against the set of checked
// item ids.
func CategoryProgressFor(items []*domain.ChecklistItem, checked map[string]bool) map[string]CategoryProgress {
	out := make(map[string]CategoryProgress)
	for _, item := range items {
		p := out[item.Category]
		p.Total++
		if checked[item.ID] {
			p.Checked++
		}
		out[item.Category] = p
	}
	return out
}
