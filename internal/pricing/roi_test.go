package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApprovalLevels(t *testing.T) {
	tests := []struct {
		name     string
		custom   float64
		standard float64
		want     ApprovalLevel
	}{
		{"at list price", 450, 450, ApprovalStandard},
		{"small discount", 440, 450, ApprovalStandard},
		{"five percent below", 427.5, 450, ApprovalSalesManager},
		{"eight percent below", 414, 450, ApprovalSalesManager},
		{"ten percent below", 405, 450, ApprovalDirector},
		{"deep discount", 300, 450, ApprovalDirector},
		{"above list", 500, 450, ApprovalStandard},
		{"zero standard price", 100, 0, ApprovalStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Approval(tt.custom, tt.standard))
		})
	}
}

func TestROI(t *testing.T) {
	r := ROI(1000, 2, 500, 3_000_000)

	assert.InDelta(t, 1_000_000, r.MonthlySavings, 1e-6)
	assert.InDelta(t, 12_000_000, r.AnnualSavings, 1e-6)
	assert.InDelta(t, 300.0, r.ROIPct, 1e-9)
	assert.InDelta(t, 3.0, r.PaybackMonths, 1e-9)
}

func TestROIZeroDenominators(t *testing.T) {
	r := ROI(1000, 2, 500, 0)
	assert.Zero(t, r.ROIPct)

	r = ROI(0, 0, 0, 5000)
	assert.Zero(t, r.MonthlySavings)
	assert.Zero(t, r.PaybackMonths)
}
