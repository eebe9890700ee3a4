package graph

import "sort"

// Flatten collapses the tree into the deduplicated install order. Every
// declaration is visited by ascending depth, then lexicographic key within
// a depth; the first declaration of each unique key wins and every later
// declaration of that key is recorded against the winner as a conflict.
// Winners are never overwritten, and flattening the same tree twice yields
// identical results.
func Flatten(tree *Tree) *FlatMap {
	occ := append([]occurrence(nil), tree.occurrences...)
	sort.SliceStable(occ, func(i, j int) bool {
		if occ[i].depth != occ[j].depth {
			return occ[i].depth < occ[j].depth
		}
		return occ[i].ref.UniqueKey() < occ[j].ref.UniqueKey()
	})

	flat := newFlatMap()
	for _, o := range occ {
		key := o.ref.UniqueKey()
		if winner, ok := flat.Get(key); ok {
			flat.addLoser(winner, o.ref)
			continue
		}
		flat.addWinner(o.node)
	}
	return flat
}
