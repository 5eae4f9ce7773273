// Package tracker enforces the lead lifecycle rules shared by every store
// backend: derived pricing recomputation, stage transition bookkeeping, and
// the append-only activity log.
package tracker

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/acolyte-hq/pipeline-cli/internal/model"
	"github.com/acolyte-hq/pipeline-cli/internal/pricing"
)

// Initialize prepares a freshly captured lead for persistence: defaults,
// contact dates, derived pricing, and a creation log entry.
func Initialize(l *model.Lead, now time.Time) error {
	if l.Stage == "" {
		l.Stage = model.StageNew
	}
	if l.PaymentPreference == "" {
		l.PaymentPreference = model.CycleMonthly
	}
	if l.FirstContact.IsZero() {
		l.FirstContact = now
	}
	if l.LastContact.IsZero() {
		l.LastContact = l.FirstContact
	}
	if l.StageChangeDate.IsZero() {
		l.StageChangeDate = l.FirstContact
	}
	l.CreatedAt = now
	l.UpdatedAt = now

	if err := recomputeDealValue(l); err != nil {
		return err
	}
	if l.Stage.Closed() && l.ActualClose == nil {
		t := now
		l.ActualClose = &t
	}

	if err := l.Validate(); err != nil {
		return err
	}

	l.ActivityLog = []model.ActivityEntry{{
		Timestamp:         now,
		Type:              model.ActivityUpdate,
		Notes:             "Lead created",
		StageBefore:       l.Stage,
		StageAfter:        l.Stage,
		ProbabilityBefore: l.Probability,
		ProbabilityAfter:  l.Probability,
	}}
	return nil
}

// ApplyUpdate applies a partial update to a lead in place.
//
// Derived pricing fields are recomputed whenever student count, payment
// preference, or category changes. A synthetic activity entry summarizing
// stage/probability deltas is appended whenever those fields change. The
// stage change date moves with the stage; entering a terminal stage records
// the actual close date.
func ApplyUpdate(l *model.Lead, upd model.LeadUpdate, now time.Time) error {
	if upd.Empty() {
		return nil
	}

	stageBefore := l.Stage
	probBefore := l.Probability
	repriceBefore := repriceKey(l)

	applyFields(l, upd)

	if err := l.Validate(); err != nil {
		return err
	}

	if repriceKey(l) != repriceBefore {
		if err := recomputeDealValue(l); err != nil {
			return err
		}
	}

	if l.Stage != stageBefore {
		l.StageChangeDate = now
		if l.Stage.Closed() {
			t := now
			l.ActualClose = &t
		}
	}

	if l.Stage != stageBefore || l.Probability != probBefore {
		prepend(l, model.ActivityEntry{
			Timestamp:         now,
			Type:              model.ActivityUpdate,
			Notes:             updateSummary(stageBefore, l.Stage, probBefore, l.Probability),
			StageBefore:       stageBefore,
			StageAfter:        l.Stage,
			ProbabilityBefore: probBefore,
			ProbabilityAfter:  l.Probability,
		})
	}

	l.LastContact = now
	l.UpdatedAt = now
	return nil
}

// ApplyActivity appends an activity entry to the lead's log and applies its
// side effects: last contact advances to the activity time when newer, and a
// stage or probability carried on the entry updates the lead.
func ApplyActivity(l *model.Lead, entry model.ActivityEntry, now time.Time) error {
	if entry.Type == "" {
		return eris.Wrap(model.ErrValidation, "tracker: activity type is required")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}

	entry.StageBefore = l.Stage
	entry.ProbabilityBefore = l.Probability

	if entry.StageAfter != "" && entry.StageAfter != l.Stage {
		if _, err := model.ParseStage(string(entry.StageAfter)); err != nil {
			return err
		}
		l.Stage = entry.StageAfter
		l.StageChangeDate = entry.Timestamp
		if l.Stage.Closed() {
			t := entry.Timestamp
			l.ActualClose = &t
		}
	} else {
		entry.StageAfter = l.Stage
	}

	// A negative probability means the entry does not change it.
	if entry.ProbabilityAfter < 0 {
		entry.ProbabilityAfter = l.Probability
	} else if entry.ProbabilityAfter != l.Probability {
		if entry.ProbabilityAfter > 100 {
			return eris.Wrap(model.ErrValidation, "tracker: probability must be between 0 and 100")
		}
		l.Probability = entry.ProbabilityAfter
	}

	prepend(l, entry)
	// A backdated entry records history; it is not the most recent contact.
	if entry.Timestamp.After(l.LastContact) {
		l.LastContact = entry.Timestamp
	}
	l.UpdatedAt = now
	return nil
}

// DaysInStage returns how long the lead has sat in its current stage, as the
// gap between the last contact and the stage change. Never negative.
func DaysInStage(l *model.Lead) float64 {
	d := l.LastContact.Sub(l.StageChangeDate).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// DaysSinceContact returns full days since the lead was last touched.
func DaysSinceContact(l *model.Lead, asOf time.Time) int {
	return int(asOf.Sub(l.LastContact).Hours() / 24)
}

func recomputeDealValue(l *model.Lead) error {
	monthly, annual, err := pricing.DealValue(l.CurrentStudentCount, l.PaymentPreference)
	if err != nil {
		return eris.Wrap(err, "tracker: recompute deal value")
	}
	l.StudentPriceMonthly = monthly
	l.TotalDealValueAnnual = annual
	return nil
}

// repriceKey captures the inputs of the derived pricing fields.
func repriceKey(l *model.Lead) string {
	return fmt.Sprintf("%d|%s|%s", l.CurrentStudentCount, l.PaymentPreference, l.Category)
}

func updateSummary(stageBefore, stageAfter model.Stage, probBefore, probAfter int) string {
	return fmt.Sprintf("Lead updated: stage %s -> %s, probability %d%% -> %d%%",
		stageBefore, stageAfter, probBefore, probAfter)
}

// prepend inserts an entry at the head of the log, newest first.
func prepend(l *model.Lead, entry model.ActivityEntry) {
	l.ActivityLog = append([]model.ActivityEntry{entry}, l.ActivityLog...)
}

func applyFields(l *model.Lead, u model.LeadUpdate) {
	if u.InstitutionName != nil {
		l.InstitutionName = *u.InstitutionName
	}
	if u.InstitutionType != nil {
		l.InstitutionType = *u.InstitutionType
	}
	if u.Ownership != nil {
		l.Ownership = *u.Ownership
	}
	if u.Category != nil {
		l.Category = *u.Category
	}
	if u.Territory != nil {
		l.Territory = *u.Territory
	}
	if u.LeadSource != nil {
		l.LeadSource = *u.LeadSource
	}
	if u.LeadOwner != nil {
		l.LeadOwner = *u.LeadOwner
	}
	if u.City != nil {
		l.City = *u.City
	}
	if u.PrimaryContact != nil {
		l.PrimaryContact = *u.PrimaryContact
	}
	if u.SecondaryContact != nil {
		l.SecondaryContact = *u.SecondaryContact
	}
	if u.CurrentStudentCount != nil {
		l.CurrentStudentCount = *u.CurrentStudentCount
	}
	if u.MaxStudentCapacity != nil {
		l.MaxStudentCapacity = *u.MaxStudentCapacity
	}
	if u.CurrentLMSProvider != nil {
		l.CurrentLMSProvider = *u.CurrentLMSProvider
	}
	if u.InterestedModules != nil {
		l.InterestedModules = *u.InterestedModules
	}
	if u.BudgetConfirmed != nil {
		l.BudgetConfirmed = *u.BudgetConfirmed
	}
	if u.PaymentPreference != nil {
		l.PaymentPreference = *u.PaymentPreference
	}
	if u.Stage != nil {
		l.Stage = *u.Stage
	}
	if u.Probability != nil {
		l.Probability = *u.Probability
	}
	if u.NextFollowUp != nil {
		l.NextFollowUp = u.NextFollowUp
	}
	if u.DemoScheduled != nil {
		l.DemoScheduled = u.DemoScheduled
	}
	if u.ProposalSent != nil {
		l.ProposalSent = u.ProposalSent
	}
	if u.ExpectedClose != nil {
		l.ExpectedClose = u.ExpectedClose
	}
	if u.Competitors != nil {
		l.Competitors = *u.Competitors
	}
	if u.PainPoints != nil {
		l.PainPoints = *u.PainPoints
	}
	if u.NextSteps != nil {
		l.NextSteps = *u.NextSteps
	}
	if u.Notes != nil {
		l.Notes = *u.Notes
	}
}
