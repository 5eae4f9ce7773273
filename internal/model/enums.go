package model

import (
	"github.com/rotisserie/eris"
)

// Stage represents a lead's position in the sales funnel.
type Stage string

const (
	StageNew         Stage = "New"
	StageContacted   Stage = "Contacted"
	StageQualified   Stage = "Qualified"
	StageDemo        Stage = "Demo"
	StageProposal    Stage = "Proposal"
	StageNegotiation Stage = "Negotiation"
	StageClosedWon   Stage = "Closed Won"
	StageClosedLost  Stage = "Closed Lost"
)

// Stages lists funnel stages in pipeline order.
var Stages = []Stage{
	StageNew, StageContacted, StageQualified, StageDemo,
	StageProposal, StageNegotiation, StageClosedWon, StageClosedLost,
}

// Closed reports whether the stage is terminal.
func (s Stage) Closed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Order returns the stage's position in the funnel, or -1 if unknown.
func (s Stage) Order() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage validates a stage string.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if st.Order() < 0 {
		return "", eris.Wrapf(ErrValidation, "unknown stage %q", s)
	}
	return st, nil
}

// PaymentCycle is the billing cadence for a contract.
type PaymentCycle string

const (
	CycleMonthly   PaymentCycle = "Monthly"
	CycleQuarterly PaymentCycle = "Quarterly"
	CycleAnnual    PaymentCycle = "Annual"
)

// PaymentCycles lists the supported billing cadences.
var PaymentCycles = []PaymentCycle{CycleMonthly, CycleQuarterly, CycleAnnual}

// ParsePaymentCycle validates a payment cycle string.
func ParsePaymentCycle(s string) (PaymentCycle, error) {
	for _, c := range PaymentCycles {
		if string(c) == s {
			return c, nil
		}
	}
	return "", eris.Wrapf(ErrValidation, "unknown payment cycle %q", s)
}

// PeriodsPerYear returns the number of payments per year for the cycle.
func (c PaymentCycle) PeriodsPerYear() int {
	switch c {
	case CycleQuarterly:
		return 4
	case CycleMonthly:
		return 12
	default:
		return 1
	}
}

// CapacityCategory selects the pricing tier table for an institution.
type CapacityCategory string

const (
	HigherCapacity  CapacityCategory = "Higher Capacity"
	LimitedCapacity CapacityCategory = "Limited Capacity"
)

// ParseCapacityCategory validates a capacity category string.
func ParseCapacityCategory(s string) (CapacityCategory, error) {
	switch CapacityCategory(s) {
	case HigherCapacity, LimitedCapacity:
		return CapacityCategory(s), nil
	}
	return "", eris.Wrapf(ErrValidation, "unknown capacity category %q", s)
}

// InstitutionType classifies the institution.
type InstitutionType string

const (
	InstitutionMedical InstitutionType = "Medical College"
	InstitutionDental  InstitutionType = "Dental College"
	InstitutionOther   InstitutionType = "Other"
)

// InstitutionTypes lists the supported institution types.
var InstitutionTypes = []InstitutionType{InstitutionMedical, InstitutionDental, InstitutionOther}

// Ownership classifies who runs the institution.
type Ownership string

const (
	OwnershipPrivate    Ownership = "Private"
	OwnershipGovernment Ownership = "Government"
	OwnershipSociety    Ownership = "Society"
)

// Ownerships lists the supported ownership models.
var Ownerships = []Ownership{OwnershipPrivate, OwnershipGovernment, OwnershipSociety}

// Territory is a sales territory in the Karnataka expansion plan.
type Territory string

const (
	TerritoryBangaloreUrban Territory = "Bangalore Urban"
	TerritoryBangaloreRural Territory = "Bangalore Rural & Mysore"
	TerritoryMangalore      Territory = "Mangalore & Coastal"
	TerritoryNorthKarnataka Territory = "North Karnataka"
)

// Territories lists the active sales territories.
var Territories = []Territory{
	TerritoryBangaloreUrban, TerritoryBangaloreRural,
	TerritoryMangalore, TerritoryNorthKarnataka,
}

// ParseTerritory validates a territory string.
func ParseTerritory(s string) (Territory, error) {
	for _, t := range Territories {
		if string(t) == s {
			return t, nil
		}
	}
	return "", eris.Wrapf(ErrValidation, "unknown territory %q", s)
}

// Category is the commercial segment of the institution.
type Category string

const (
	CategoryPremiumPrivate Category = "Premium Private"
	CategoryMidTierPrivate Category = "Mid-tier Private"
	CategoryBudgetPrivate  Category = "Budget Private"
	CategoryGovernment     Category = "Government"
)

// Categories lists the supported commercial segments.
var Categories = []Category{
	CategoryPremiumPrivate, CategoryMidTierPrivate,
	CategoryBudgetPrivate, CategoryGovernment,
}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", eris.Wrapf(ErrValidation, "unknown category %q", s)
}

// LeadSource records how the lead entered the pipeline.
type LeadSource string

const (
	SourceConference LeadSource = "Conference"
	SourceReferral   LeadSource = "Referral"
	SourceDirect     LeadSource = "Direct Outreach"
	SourceDigital    LeadSource = "Digital Marketing"
	SourceOther      LeadSource = "Other"
)

// LeadSources lists the supported lead sources.
var LeadSources = []LeadSource{
	SourceConference, SourceReferral, SourceDirect, SourceDigital, SourceOther,
}

// ActivityType categorizes an activity log entry.
type ActivityType string

const (
	ActivityCall     ActivityType = "Call"
	ActivityEmail    ActivityType = "Email"
	ActivityMeeting  ActivityType = "Meeting"
	ActivityDemo     ActivityType = "Demo"
	ActivityProposal ActivityType = "Proposal"
	ActivityUpdate   ActivityType = "Update"
	ActivityOther    ActivityType = "Other"
)

// RiskReason is a heuristic marker indicating a deal needs attention.
type RiskReason string

const (
	RiskAging          RiskReason = "Aging"
	RiskLowProbability RiskReason = "Low Probability"
	RiskLargeDeal      RiskReason = "Large Deal"
)
