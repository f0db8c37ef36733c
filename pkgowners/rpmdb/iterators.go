package rpmdb

// sliceIterator serves records that were already materialized.
type sliceIterator struct {
	pkgs []*Package
	pos  int
}

func newSliceIterator(pkgs []*Package) *sliceIterator {
	return &sliceIterator{pkgs: pkgs, pos: -1}
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.pkgs) {
		it.pos = len(it.pkgs)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Package() *Package {
	if it.pos < 0 || it.pos >= len(it.pkgs) {
		return nil
	}
	return it.pkgs[it.pos]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

type sliceFileIterator struct {
	files []FileEntry
	pos   int
}

func newSliceFileIterator(files []FileEntry) *sliceFileIterator {
	return &sliceFileIterator{files: files, pos: -1}
}

func (it *sliceFileIterator) Next() bool {
	if it.pos+1 >= len(it.files) {
		it.pos = len(it.files)
		return false
	}
	it.pos++
	return true
}

func (it *sliceFileIterator) File() FileEntry {
	if it.pos < 0 || it.pos >= len(it.files) {
		return FileEntry{}
	}
	return it.files[it.pos]
}

func (it *sliceFileIterator) Err() error   { return nil }
func (it *sliceFileIterator) Close() error { return nil }

// CollectNEVRAs drains a package iterator into its identifiers and closes it.
func CollectNEVRAs(it PackageIterator) ([]string, error) {
	defer it.Close()
	var out []string
	for it.Next() {
		out = append(out, it.Package().NEVRA())
	}
	return out, it.Err()
}
