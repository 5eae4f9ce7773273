package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Contact identifies a person at the institution.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ActivityEntry is one immutable record in a lead's activity log.
type ActivityEntry struct {
	Timestamp         time.Time    `json:"timestamp"`
	Type              ActivityType `json:"type"`
	Notes             string       `json:"notes,omitempty"`
	StageBefore       Stage        `json:"stage_before,omitempty"`
	StageAfter        Stage        `json:"stage_after,omitempty"`
	ProbabilityBefore int          `json:"probability_before"`
	ProbabilityAfter  int          `json:"probability_after"`
}

// Lead is one tracked sales opportunity for one institution.
//
// StudentPriceMonthly and TotalDealValueAnnual are derived from
// (CurrentStudentCount, PaymentPreference) by the pricing calculator and are
// never settable by callers.
type Lead struct {
	ID              string `json:"id"`
	InstitutionName string `json:"institution_name"`

	InstitutionType   InstitutionType `json:"institution_type"`
	Ownership         Ownership       `json:"ownership"`
	Category          Category        `json:"category"`
	Territory         Territory       `json:"territory"`
	LeadSource        LeadSource      `json:"lead_source"`
	LeadOwner         string          `json:"lead_owner,omitempty"`
	EstablishmentYear int             `json:"establishment_year,omitempty"`
	City              string          `json:"city,omitempty"`

	PrimaryContact   Contact `json:"primary_contact,omitempty"`
	SecondaryContact Contact `json:"secondary_contact,omitempty"`

	CurrentStudentCount int      `json:"current_student_count"`
	MaxStudentCapacity  int      `json:"max_student_capacity"`
	CurrentLMSProvider  string   `json:"current_lms_provider,omitempty"`
	InterestedModules   []string `json:"interested_modules,omitempty"`
	BudgetConfirmed     bool     `json:"budget_confirmed"`

	PaymentPreference    PaymentCycle `json:"payment_preference"`
	StudentPriceMonthly  float64      `json:"student_price_monthly"`
	TotalDealValueAnnual float64      `json:"total_deal_value_annual"`

	Stage           Stage      `json:"stage"`
	Probability     int        `json:"probability"`
	StageChangeDate time.Time  `json:"stage_change_date"`
	FirstContact    time.Time  `json:"first_contact_date"`
	LastContact     time.Time  `json:"last_contact_date"`
	NextFollowUp    *time.Time `json:"next_follow_up_date,omitempty"`
	DemoScheduled   *time.Time `json:"demo_scheduled_date,omitempty"`
	ProposalSent    *time.Time `json:"proposal_sent_date,omitempty"`
	ExpectedClose   *time.Time `json:"expected_close_date,omitempty"`
	ActualClose     *time.Time `json:"actual_close_date,omitempty"`

	Competitors string `json:"competitors_involved,omitempty"`
	PainPoints  string `json:"pain_points,omitempty"`
	NextSteps   string `json:"next_steps,omitempty"`
	Notes       string `json:"notes,omitempty"`

	// ActivityLog is append-only, newest first.
	ActivityLog []ActivityEntry `json:"activity_log,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the lead's field domain invariants.
func (l *Lead) Validate() error {
	var errs []string

	if strings.TrimSpace(l.InstitutionName) == "" {
		errs = append(errs, "institution_name is required")
	}
	if l.CurrentStudentCount < 0 {
		errs = append(errs, "current_student_count must be >= 0")
	}
	if l.MaxStudentCapacity < 0 {
		errs = append(errs, "max_student_capacity must be >= 0")
	}
	if l.Probability < 0 || l.Probability > 100 {
		errs = append(errs, "probability must be between 0 and 100")
	}
	if l.Stage != "" && l.Stage.Order() < 0 {
		errs = append(errs, "unknown stage "+string(l.Stage))
	}
	if l.PaymentPreference != "" {
		if _, err := ParsePaymentCycle(string(l.PaymentPreference)); err != nil {
			errs = append(errs, "unknown payment preference "+string(l.PaymentPreference))
		}
	}
	if l.Territory != "" {
		if _, err := ParseTerritory(string(l.Territory)); err != nil {
			errs = append(errs, "unknown territory "+string(l.Territory))
		}
	}
	if l.Category != "" {
		if _, err := ParseCategory(string(l.Category)); err != nil {
			errs = append(errs, "unknown category "+string(l.Category))
		}
	}
	if !l.StageChangeDate.IsZero() && !l.FirstContact.IsZero() && l.StageChangeDate.Before(l.FirstContact) {
		errs = append(errs, "stage_change_date must not precede first_contact_date")
	}

	if len(errs) > 0 {
		return eris.Wrapf(ErrValidation, "lead: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Value returns the lead's annual deal value.
func (l *Lead) Value() float64 {
	return l.TotalDealValueAnnual
}

// WeightedValue returns the deal value scaled by close probability.
func (l *Lead) WeightedValue() float64 {
	return l.TotalDealValueAnnual * float64(l.Probability) / 100
}

// Clone returns a deep copy of the lead, detached from any shared slices.
func (l *Lead) Clone() *Lead {
	c := *l
	if l.InterestedModules != nil {
		c.InterestedModules = append([]string(nil), l.InterestedModules...)
	}
	if l.ActivityLog != nil {
		c.ActivityLog = append([]ActivityEntry(nil), l.ActivityLog...)
	}
	c.NextFollowUp = cloneTime(l.NextFollowUp)
	c.DemoScheduled = cloneTime(l.DemoScheduled)
	c.ProposalSent = cloneTime(l.ProposalSent)
	c.ExpectedClose = cloneTime(l.ExpectedClose)
	c.ActualClose = cloneTime(l.ActualClose)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// LeadUpdate is a partial update applied to an existing lead. Nil fields are
// left untouched. Derived pricing fields have no counterpart here on purpose:
// they are recomputed by the store whenever one of their inputs changes.
type LeadUpdate struct {
	InstitutionName *string          `json:"institution_name,omitempty"`
	InstitutionType *InstitutionType `json:"institution_type,omitempty"`
	Ownership       *Ownership       `json:"ownership,omitempty"`
	Category        *Category        `json:"category,omitempty"`
	Territory       *Territory       `json:"territory,omitempty"`
	LeadSource      *LeadSource      `json:"lead_source,omitempty"`
	LeadOwner       *string          `json:"lead_owner,omitempty"`
	City            *string          `json:"city,omitempty"`

	PrimaryContact   *Contact `json:"primary_contact,omitempty"`
	SecondaryContact *Contact `json:"secondary_contact,omitempty"`

	CurrentStudentCount *int      `json:"current_student_count,omitempty"`
	MaxStudentCapacity  *int      `json:"max_student_capacity,omitempty"`
	CurrentLMSProvider  *string   `json:"current_lms_provider,omitempty"`
	InterestedModules   *[]string `json:"interested_modules,omitempty"`
	BudgetConfirmed     *bool     `json:"budget_confirmed,omitempty"`

	PaymentPreference *PaymentCycle `json:"payment_preference,omitempty"`

	Stage         *Stage     `json:"stage,omitempty"`
	Probability   *int       `json:"probability,omitempty"`
	NextFollowUp  *time.Time `json:"next_follow_up_date,omitempty"`
	DemoScheduled *time.Time `json:"demo_scheduled_date,omitempty"`
	ProposalSent  *time.Time `json:"proposal_sent_date,omitempty"`
	ExpectedClose *time.Time `json:"expected_close_date,omitempty"`

	Competitors *string `json:"competitors_involved,omitempty"`
	PainPoints  *string `json:"pain_points,omitempty"`
	NextSteps   *string `json:"next_steps,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u *LeadUpdate) Empty() bool {
	return u == nil || *u == (LeadUpdate{})
}
