package depgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/domain"
)

func TestLiftAddsCrossIntentEdges(t *testing.T) {
	intents := []domain.Intent{
		{ID: "a"},
		{ID: "b", Dependency: []string{"a"}},
	}
	txByIntent := map[string][]domain.Transaction{
		"a": {{ID: "a1"}},
		"b": {{ID: "b1"}},
	}

	got, err := Lift(intents, txByIntent)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byID := make(map[string]domain.Transaction, len(got))
	for _, tx := range got {
		byID[tx.ID] = tx
	}
	require.Empty(t, []string(byID["a1"].Dependency))
	require.Equal(t, []string{"a1"}, []string(byID["b1"].Dependency))
}

func TestLiftPreservesIntraIntentEdges(t *testing.T) {
	intents := []domain.Intent{{ID: "a"}}
	txByIntent := map[string][]domain.Transaction{
		"a": {
			{ID: "approve"},
			{ID: "transfer_from", Dependency: []string{"approve"}},
		},
	}

	got, err := Lift(intents, txByIntent)
	require.NoError(t, err)

	byID := make(map[string]domain.Transaction, len(got))
	for _, tx := range got {
		byID[tx.ID] = tx
	}
	require.Equal(t, []string{"approve"}, []string(byID["transfer_from"].Dependency))
}

func TestLiftRejectsCyclicIntentGraph(t *testing.T) {
	intents := []domain.Intent{
		{ID: "a", Dependency: []string{"b"}},
		{ID: "b", Dependency: []string{"a"}},
	}
	txByIntent := map[string][]domain.Transaction{
		"a": {{ID: "a1"}},
		"b": {{ID: "b1"}},
	}

	_, err := Lift(intents, txByIntent)
	require.Error(t, err)
	ce, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindCycleDetected, ce.Kind)
}

func TestLiftDeduplicatesRepeatedEdges(t *testing.T) {
	intents := []domain.Intent{
		{ID: "a"},
		{ID: "b", Dependency: []string{"a"}},
	}
	txByIntent := map[string][]domain.Transaction{
		"a": {{ID: "a1"}, {ID: "a2"}},
		"b": {{ID: "b1", Dependency: []string{"a1"}}},
	}

	got, err := Lift(intents, txByIntent)
	require.NoError(t, err)

	byID := make(map[string]domain.Transaction, len(got))
	for _, tx := range got {
		byID[tx.ID] = tx
	}
	require.ElementsMatch(t, []string{"a1", "a2"}, []string(byID["b1"].Dependency))
}
