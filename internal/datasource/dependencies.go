package datasource

import (
	"sync"

	"github.com/TimurManjosov/goflagship/ldmodel"
)

// kindAndKey identifies one item in the Data Store by kind and key, used
// as the node identity in the dependency graph below.
type kindAndKey struct {
	kind ldmodel.Kind
	key  string
}

// dependencyTracker maintains the bidirectional dependency graph between
// flags and segments -- a flag depends on its prerequisite flags and on
// any segment it references via a segmentMatch clause; a segment depends
// on any segment it references the same way. It lets an update to one
// item (most often a segment, or a flag used as a prerequisite) be
// expanded into every flag that directly or transitively depends on it,
// so a FlagChangeEvent fires for all of them, not just the literal
// updated key. Grounded on the real SDK's
// impl/dependency_tracker.py.
type dependencyTracker struct {
	mu       sync.Mutex
	children map[kindAndKey]map[kindAndKey]struct{}
	parents  map[kindAndKey]map[kindAndKey]struct{}
}

func newDependencyTracker() *dependencyTracker {
	return &dependencyTracker{
		children: map[kindAndKey]map[kindAndKey]struct{}{},
		parents:  map[kindAndKey]map[kindAndKey]struct{}{},
	}
}

// reset clears the graph, used before rebuilding it from a full "put".
func (d *dependencyTracker) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.children = map[kindAndKey]map[kindAndKey]struct{}{}
	d.parents = map[kindAndKey]map[kindAndKey]struct{}{}
}

// updateDependenciesFrom records what `from` currently depends on,
// replacing whatever it depended on before. A deleted item (item with no
// Flag/Segment payload) computes to an empty dependency set, pruning it
// out of the graph.
func (d *dependencyTracker) updateDependenciesFrom(from kindAndKey, item ldmodel.ItemDescriptor) {
	updated := computeDependenciesFrom(from.kind, item)

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.children[from]; ok {
		for child := range old {
			delete(d.parents[child], from)
		}
	}
	d.children[from] = updated
	for child := range updated {
		if d.parents[child] == nil {
			d.parents[child] = map[kindAndKey]struct{}{}
		}
		d.parents[child][from] = struct{}{}
	}
}

// affectedItems returns initial plus every item that directly or
// indirectly depends on it, per the graph's current state.
func (d *dependencyTracker) affectedItems(initial kindAndKey) map[kindAndKey]struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[kindAndKey]struct{}{}
	d.addAffectedItems(out, initial)
	return out
}

func (d *dependencyTracker) addAffectedItems(out map[kindAndKey]struct{}, item kindAndKey) {
	if _, ok := out[item]; ok {
		return
	}
	out[item] = struct{}{}
	for parent := range d.parents[item] {
		d.addAffectedItems(out, parent)
	}
}

func computeDependenciesFrom(kind ldmodel.Kind, item ldmodel.ItemDescriptor) map[kindAndKey]struct{} {
	result := map[kindAndKey]struct{}{}
	switch kind {
	case ldmodel.KindFlag:
		if item.Flag == nil {
			return result
		}
		for _, p := range item.Flag.Prerequisites {
			result[kindAndKey{kind: ldmodel.KindFlag, key: p.Key}] = struct{}{}
		}
		for _, rule := range item.Flag.Rules {
			addSegmentKeysFromClauses(result, rule.Clauses)
		}
	case ldmodel.KindSegment:
		if item.Segment == nil {
			return result
		}
		for _, rule := range item.Segment.Rules {
			addSegmentKeysFromClauses(result, rule.Clauses)
		}
	}
	return result
}

func addSegmentKeysFromClauses(out map[kindAndKey]struct{}, clauses []ldmodel.Clause) {
	for _, clause := range clauses {
		if clause.Op != "segmentMatch" {
			continue
		}
		for _, v := range clause.Values {
			if key, ok := v.(string); ok {
				out[kindAndKey{kind: ldmodel.KindSegment, key: key}] = struct{}{}
			}
		}
	}
}
