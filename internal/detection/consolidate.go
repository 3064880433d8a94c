package detection

// Consolidate merges raw detected boxes into disjoint text regions.
//
// Two boxes are adjacent when one of them, expanded by distanceThreshold on
// every side, strictly overlaps the other. Each connected component of the
// adjacency graph is replaced by the bounding-box union of its members.
//
// Parameters:
//   - boxes: Raw detector output. Degenerate boxes (x2 <= x1 or y2 <= y1)
//     are dropped before merging.
//   - distanceThreshold: Gap in pixels across which boxes still merge.
//
// Returns the merged regions sorted top-to-bottom, left-to-right.
//
// # Algorithm
//
// Components are found with union-find over all pairs, so the result does
// not depend on input order. A merged union can grow close enough to another
// union to become adjacent to it even though none of their members were;
// the pass is therefore repeated on its own output until no further merge
// happens. The fixpoint makes Consolidate idempotent for a given threshold.
//
// # Edge Cases
//
//   - Empty input returns an empty (non-nil) slice
//   - Isolated boxes pass through unchanged
//   - A single valid box is returned as-is
func Consolidate(boxes []BoundingBox, distanceThreshold int) []BoundingBox {
	current := make([]BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		if b.Valid() {
			current = append(current, b)
		}
	}

	for {
		merged := mergeComponents(current, distanceThreshold)
		if len(merged) == len(current) {
			SortBoxes(merged)
			return merged
		}
		current = merged
	}
}

// Adjacent reports whether a and b belong to the same region at the given
// threshold. The relation is symmetric.
func Adjacent(a, b BoundingBox, distanceThreshold int) bool {
	return a.Expand(distanceThreshold).Overlaps(b)
}

// mergeComponents runs one union-find pass and returns one union box per
// connected component.
func mergeComponents(boxes []BoundingBox, distanceThreshold int) []BoundingBox {
	uf := newUnionFind(len(boxes))
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			if Adjacent(boxes[i], boxes[j], distanceThreshold) {
				uf.union(i, j)
			}
		}
	}

	index := make(map[int]int, len(boxes))
	result := make([]BoundingBox, 0, len(boxes))
	for i, b := range boxes {
		root := uf.find(i)
		if k, ok := index[root]; ok {
			result[k] = result[k].Union(b)
			continue
		}
		index[root] = len(result)
		result = append(result, b)
	}
	return result
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}
