package fulfillment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcome(planned, actual int64) LineOutcome {
	return LineOutcome{Planned: decimal.NewFromInt(planned), Actual: decimal.NewFromInt(actual)}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name     string
		lines    []LineOutcome
		invoiced bool
		want     ParentOrderState
	}{
		{"no lines", nil, false, ParentStateInProgress},
		{"no lines invoiced", nil, true, ParentStateInProgress},
		{"all delivered invoiced", []LineOutcome{outcome(10, 10), outcome(5, 5)}, true, ParentStateInvoiced},
		{"all delivered not invoiced", []LineOutcome{outcome(10, 10), outcome(5, 5)}, false, ParentStateFulfilled},
		{"one short", []LineOutcome{outcome(10, 8), outcome(5, 5)}, false, ParentStatePartiallyFulfilled},
		{"one short invoiced", []LineOutcome{outcome(10, 8), outcome(5, 5)}, true, ParentStatePartiallyFulfilled},
		{"over delivered counts as delivered", []LineOutcome{outcome(10, 12)}, false, ParentStateFulfilled},
		{"nothing delivered", []LineOutcome{outcome(3, 0)}, false, ParentStatePartiallyFulfilled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.lines, tt.invoiced))
		})
	}
}

func deliveredOrder(t *testing.T, parentID uuid.UUID, planned, actual int64) *Order {
	t.Helper()
	o, err := NewOrder(uuid.New(), parentID, uuid.New(), "FO-"+uuid.NewString()[:8])
	require.NoError(t, err)
	line, err := o.AddLine(uuid.New(), "Item", decimal.NewFromInt(planned))
	require.NoError(t, err)
	if actual >= 0 {
		_, err = o.RecordActual(LineReport{LineID: line.ID, ReportedQty: decimal.NewFromInt(actual), VarianceReason: "count"})
		require.NoError(t, err)
	}
	return o
}

func TestReconcileParent(t *testing.T) {
	parent := uuid.New()
	done := deliveredOrder(t, parent, 10, 10)
	pending := deliveredOrder(t, parent, 5, -1)
	short := deliveredOrder(t, parent, 5, 3)
	all := func(*Order) bool { return true }
	none := func(*Order) bool { return false }
	only := func(o *Order) func(*Order) bool {
		return func(x *Order) bool { return x == o }
	}

	assert.Equal(t, ParentStateInProgress, ReconcileParent(nil, all))
	assert.Equal(t, ParentStateInvoiced, ReconcileParent([]*Order{done}, all))
	assert.Equal(t, ParentStatePartiallyFulfilled, ReconcileParent([]*Order{done, pending}, all))
	assert.Equal(t, ParentStatePartiallyFulfilled, ReconcileParent([]*Order{done, short}, none))

	other := deliveredOrder(t, parent, 5, 5)
	assert.Equal(t, ParentStateFulfilled, ReconcileParent([]*Order{done, other}, only(done)))
	assert.Equal(t, ParentStateInvoiced, ReconcileParent([]*Order{done, other}, all))
}
