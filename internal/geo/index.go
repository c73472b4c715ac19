package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

var (
	// ErrEmptyIndex is returned when an index is built without points.
	ErrEmptyIndex = errors.New("spatial index has no points")

	// ErrInvalidK is returned when a query asks for fewer than one neighbour.
	ErrInvalidK = errors.New("neighbour count must be positive")
)

// Neighbor is one query result: the position of a point in the slice the
// index was built from and its distance in metres.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index is a static KD tree over ECEF positions. It is read-only after
// NewIndex returns and safe for concurrent queries.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds an index over points. The caller's slice is not retained.
func NewIndex(points []Vec3) (*Index, error) {
	if len(points) == 0 {
		return nil, ErrEmptyIndex
	}

	data := make(indexedPoints, len(points))
	for i, p := range points {
		data[i] = indexedPoint{pos: p, idx: i}
	}

	return &Index{
		tree: kdtree.New(data, false),
		n:    len(points),
	}, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return ix.n
}

// Query returns the min(k, Len()) points nearest to p, ordered by distance
// and then by index.
func (ix *Index) Query(p Vec3, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if k > ix.n {
		k = ix.n
	}

	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, indexedPoint{pos: p, idx: -1})

	out := make([]Neighbor, 0, k)
	for _, c := range keeper.Heap {
		// The keeper starts with an infinite-distance sentinel.
		if c.Comparable == nil {
			continue
		}
		q := c.Comparable.(indexedPoint)
		out = append(out, Neighbor{Index: q.idx, Distance: math.Sqrt(c.Dist)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// indexedPoint is a kdtree.Comparable that remembers its source position.
type indexedPoint struct {
	pos Vec3
	idx int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.pos[d] - q.pos[d]
}

func (p indexedPoint) Dims() int { return 3 }

// Distance is squared Euclidean, as kdtree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	return p.pos.distanceSq(q.pos)
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return plane{indexedPoints: p, dim: d}.Pivot()
}
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one dimension for median selection.
type plane struct {
	indexedPoints
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.indexedPoints[i].pos[p.dim] < p.indexedPoints[j].pos[p.dim]
}

func (p plane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}

func (p plane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
