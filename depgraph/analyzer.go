// Package depgraph implements C3, the Dependency Analyzer: it lifts
// intent-level dependency edges to transaction-level edges and verifies
// both graphs are DAGs via Kahn's algorithm (§4.3, §9).
package depgraph

import (
	"github.com/CashierHQ/cashier-sub001/apierr"
	"github.com/CashierHQ/cashier-sub001/domain"
)

// Lift computes the transaction list's final Dependency fields: the
// union of (i) intra-intent edges already carried from C2 and (ii)
// cross-intent edges lifted from each intent's Dependency — for every
// intent edge A->B, every transaction of A gets every transaction of B
// appended to its Dependency.
//
// intents must be the full set belonging to one action; txByIntent maps
// each intent id to the transactions C2 produced for it. Both the intent
// graph and the derived transaction graph are checked for cycles; either
// cycle yields CycleDetected and no output.
func Lift(intents []domain.Intent, txByIntent map[string][]domain.Transaction) ([]domain.Transaction, error) {
	if err := checkDAG(intentAdjacency(intents)); err != nil {
		return nil, err
	}

	// index transactions by id for dependency rewriting.
	result := make([]domain.Transaction, 0)
	txIndex := make(map[string]*domain.Transaction)
	for _, it := range intents {
		for _, tx := range txByIntent[it.ID] {
			tx := tx
			result = append(result, tx)
		}
	}
	for i := range result {
		txIndex[result[i].ID] = &result[i]
	}

	for _, it := range intents {
		for _, depIntentID := range it.Dependency {
			depTxs := txByIntent[depIntentID]
			for _, ownTx := range txByIntent[it.ID] {
				target := txIndex[ownTx.ID]
				for _, depTx := range depTxs {
					target.Dependency = appendUnique(target.Dependency, depTx.ID)
				}
			}
		}
	}

	if err := checkDAG(transactionAdjacency(result)); err != nil {
		return nil, err
	}

	return result, nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func intentAdjacency(intents []domain.Intent) map[string][]string {
	adj := make(map[string][]string, len(intents))
	for _, it := range intents {
		adj[it.ID] = append(adj[it.ID], []string(it.Dependency)...)
	}
	return adj
}

func transactionAdjacency(txs []domain.Transaction) map[string][]string {
	adj := make(map[string][]string, len(txs))
	for _, tx := range txs {
		adj[tx.ID] = append(adj[tx.ID], []string(tx.Dependency)...)
	}
	return adj
}

// checkDAG runs Kahn's algorithm over adj (node -> its dependency
// targets, i.e. edges node->dep meaning "node depends on dep") and
// returns CycleDetected if any node is never reducible to in-degree 0.
func checkDAG(adj map[string][]string) error {
	indeg := make(map[string]int, len(adj))
	for node := range adj {
		if _, ok := indeg[node]; !ok {
			indeg[node] = 0
		}
		for _, dep := range adj[node] {
			if _, ok := indeg[dep]; !ok {
				indeg[dep] = 0
			}
		}
	}
	// edge node -> dep means dep must be processed before node, i.e.
	// dep has an outgoing edge to node in the "finish before" sense.
	// We count indegree as "number of unresolved dependencies".
	for node, deps := range adj {
		indeg[node] = len(deps)
	}

	queue := make([]string, 0, len(indeg))
	for node, d := range indeg {
		if d == 0 {
			queue = append(queue, node)
		}
	}

	visited := 0
	// reverse adjacency: dep -> nodes that depend on it, so once dep is
	// resolved we can decrement those nodes' indegree.
	dependents := make(map[string][]string)
	for node, deps := range adj {
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, dependent := range dependents[n] {
			indeg[dependent]--
			if indeg[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if visited != len(indeg) {
		return apierr.CycleDetected()
	}
	return nil
}
