package indexing

import (
	roaring "github.com/RoaringBitmap/roaring"
)

// ownerSets maps a path hash to the bitmap of interned package ids owning that path.
type ownerSets map[uint64]*roaring.Bitmap

func (o ownerSets) add(hash uint64, pkg uint32) {
	bm, ok := o[hash]
	if !ok {
		bm = roaring.New()
		o[hash] = bm
	}
	bm.Add(pkg)
}

// union returns the union of the owner sets of every hash. Missing hashes are ignored.
func (o ownerSets) union(hashes ...uint64) *roaring.Bitmap {
	res := roaring.New()
	for _, h := range hashes {
		if bm, ok := o[h]; ok {
			res.Or(bm)
		}
	}
	return res
}

func (o ownerSets) optimize() {
	for _, bm := range o {
		bm.RunOptimize()
	}
}
