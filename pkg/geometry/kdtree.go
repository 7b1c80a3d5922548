package geometry

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// IndexedPoint is a point carrying its index in the owning point set so
// that k-d tree hits can be mapped back without coordinate lookups.
type IndexedPoint struct {
	Point
	Index int
}

// Compare implements the kdtree.Comparable interface
func (p IndexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(IndexedPoint)
	return Component(p.Point, int(d)) - Component(q.Point, int(d))
}

// Dims returns the number of dimensions for the KD-tree
func (p IndexedPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p IndexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(IndexedPoint)
	return p.Point.Sub(q.Point).Norm2()
}

// IndexedPoints is a collection of IndexedPoint that satisfies kdtree.Interface
type IndexedPoints []IndexedPoint

func (p IndexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p IndexedPoints) Len() int                              { return len(p) }
func (p IndexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p IndexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{IndexedPoints: p, Dim: d}, kdtree.MedianOfRandoms(pointPlane{IndexedPoints: p, Dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for IndexedPoints
type pointPlane struct {
	IndexedPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	return Component(p.IndexedPoints[i].Point, int(p.Dim)) < Component(p.IndexedPoints[j].Point, int(p.Dim))
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{IndexedPoints: p.IndexedPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.IndexedPoints[i], p.IndexedPoints[j] = p.IndexedPoints[j], p.IndexedPoints[i]
}

// Index is a k-d tree over a subset of a point set.
type Index struct {
	tree *kdtree.Tree
}

// NewIndex builds a k-d tree over points[indices]. A nil indices slice
// indexes every point.
func NewIndex(points Points, indices []int) *Index {
	var items IndexedPoints
	if indices == nil {
		items = make(IndexedPoints, len(points))
		for i, p := range points {
			items[i] = IndexedPoint{Point: p, Index: i}
		}
	} else {
		items = make(IndexedPoints, len(indices))
		for i, idx := range indices {
			items[i] = IndexedPoint{Point: points[idx], Index: idx}
		}
	}
	if len(items) == 0 {
		return &Index{}
	}
	return &Index{tree: kdtree.New(items, true)}
}

// RadiusSearch returns the indices of all indexed points within radius of
// q, in ascending order.
func (x *Index) RadiusSearch(q Point, radius float64) []int {
	if x.tree == nil {
		return nil
	}
	keeper := kdtree.NewDistKeeper(radius * radius)
	x.tree.NearestSet(keeper, IndexedPoint{Point: q, Index: -1})

	indices := make([]int, 0, keeper.Len())
	for _, item := range keeper.Heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		indices = append(indices, item.Comparable.(IndexedPoint).Index)
	}
	sort.Ints(indices)
	return indices
}

// Nearest returns the indices of the k indexed points closest to q, in
// ascending order of index.
func (x *Index) Nearest(q Point, k int) []int {
	if x.tree == nil || k <= 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k)
	x.tree.NearestSet(keeper, IndexedPoint{Point: q, Index: -1})

	indices := make([]int, 0, k)
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		indices = append(indices, item.Comparable.(IndexedPoint).Index)
	}
	sort.Ints(indices)
	return indices
}
