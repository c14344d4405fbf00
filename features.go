package shadertpl

import "sort"

// FeatureSet is the set of currently enabled feature identifiers.
//
// Only membership matters, so it is a map with empty values. The zero value
// (nil) is a valid empty set for reads, use NewFeatureSet before writing.
type FeatureSet map[string]struct{}

func NewFeatureSet(names ...string) FeatureSet {
	fs := make(FeatureSet, len(names))
	fs.Add(names...)
	return fs
}

func (fs FeatureSet) Has(name string) bool {
	_, ok := fs[name]
	return ok
}

// Add inserts the given names and returns how many of them were not already present
func (fs FeatureSet) Add(names ...string) int {
	added := 0
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := fs[n]; !ok {
			fs[n] = struct{}{}
			added++
		}
	}
	return added
}

func (fs FeatureSet) Remove(names ...string) {
	for _, n := range names {
		delete(fs, n)
	}
}

// Union returns a new set holding the members of fs and every set in others
func (fs FeatureSet) Union(others ...FeatureSet) FeatureSet {
	out := fs.Clone()
	for _, o := range others {
		for n := range o {
			out[n] = struct{}{}
		}
	}
	return out
}

func (fs FeatureSet) Clone() FeatureSet {
	out := make(FeatureSet, len(fs))
	for n := range fs {
		out[n] = struct{}{}
	}
	return out
}

func (fs FeatureSet) Len() int {
	return len(fs)
}

// Sorted returns the members in lexical order, mostly for logs and tests
func (fs FeatureSet) Sorted() []string {
	out := make([]string, 0, len(fs))
	for n := range fs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
