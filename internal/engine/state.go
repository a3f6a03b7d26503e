package engine

import (
	"fmt"
	"sort"
)

// Policy declares how concurrent writes to a state field merge.
type Policy int

const (
	// Overwrite means last writer wins. Concurrent sibling writes to an
	// Overwrite field are a graph construction error.
	Overwrite Policy = iota

	// FirstWins means the first written value sticks; later writes to
	// the field are discarded.
	FirstWins

	// Append means the field holds a sequence and writers' items are
	// concatenated in completion order.
	Append
)

// Schema maps field names to their merge policies. Graphs validate all
// node writes against the schema at construction time.
type Schema map[string]Policy

// State is the immutable-per-step mapping of named fields to values
// passed between nodes. Mutating operations return a new State; the
// receiver is never modified.
type State struct {
	schema Schema
	values map[string]any
}

// NewState creates an empty state bound to a schema.
func NewState(schema Schema) State {
	return State{schema: schema, values: make(map[string]any)}
}

// Get returns the value of a field and whether it is set.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set returns a copy of the state with key set to value, honouring the
// field's policy: a FirstWins field that already holds a value is left
// unchanged. Setting an undeclared field panics; node writes are
// validated at graph construction, so this indicates a programming
// error, not a runtime condition.
func (s State) Set(key string, value any) State {
	policy, ok := s.schema[key]
	if !ok {
		panic(fmt.Sprintf("engine: write to undeclared field %q", key))
	}
	if policy == Append {
		panic(fmt.Sprintf("engine: Set on append field %q, use AppendTo", key))
	}
	if policy == FirstWins {
		if _, exists := s.values[key]; exists {
			return s
		}
	}
	next := s.clone()
	next.values[key] = value
	return next
}

// AppendTo returns a copy of the state with items appended to the
// sequence held by an Append field. Appending to a non-Append field
// panics for the same reason Set does on undeclared fields.
func (s State) AppendTo(key string, items ...any) State {
	if s.schema[key] != Append {
		panic(fmt.Sprintf("engine: AppendTo on non-append field %q", key))
	}
	if len(items) == 0 {
		return s
	}
	next := s.clone()
	var seq []any
	if cur, ok := next.values[key]; ok {
		seq = cur.([]any)
	}
	merged := make([]any, 0, len(seq)+len(items))
	merged = append(merged, seq...)
	merged = append(merged, items...)
	next.values[key] = merged
	return next
}

// Seq returns the sequence held by an Append field, nil when unset.
func (s State) Seq(key string) []any {
	v, ok := s.values[key]
	if !ok {
		return nil
	}
	return v.([]any)
}

// Keys returns the set field names in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s State) clone() State {
	values := make(map[string]any, len(s.values)+1)
	for k, v := range s.values {
		values[k] = v
	}
	return State{schema: s.schema, values: values}
}

// merge folds branch results into the base state in completion order.
// Overwrite fields take the branch value (construction-time validation
// guarantees at most one concurrent writer). FirstWins fields keep the
// earliest value. Append fields concatenate each branch's appended
// suffix after the base sequence.
func merge(base State, branches []State) State {
	out := base.clone()
	for _, br := range branches {
		out = mergeOne(base, out, br)
	}
	return out
}

// mergeOne folds a single branch result into the accumulator. Append
// suffixes are computed against the fork-time base, not the
// accumulator, since every branch started from base.
func mergeOne(base State, acc State, br State) State {
	out := acc.clone()
	for key, val := range br.values {
		policy := base.schema[key]
		switch policy {
		case Append:
			baseSeq := out.Seq(key)
			brSeq := br.Seq(key)
			// Branches start from base and only ever append, so the
			// branch's own contribution is the suffix past the base
			// length at fork time.
			prefix := 0
			if v, ok := base.values[key]; ok {
				prefix = len(v.([]any))
			}
			if len(brSeq) > prefix {
				merged := make([]any, 0, len(baseSeq)+len(brSeq)-prefix)
				merged = append(merged, baseSeq...)
				merged = append(merged, brSeq[prefix:]...)
				out.values[key] = merged
			}
		case FirstWins:
			if _, exists := out.values[key]; !exists {
				out.values[key] = val
			} else if baseVal, inBase := base.values[key]; inBase {
				// Field was set before the fork; keep it.
				out.values[key] = baseVal
			}
		default: // Overwrite
			if !sameAsBase(base, key, val) {
				out.values[key] = val
			}
		}
	}
	return out
}

// sameAsBase reports whether a branch value is just the inherited base
// value for the key, in which case merging it is a no-op. Comparison is
// by interface equality and tolerates incomparable types.
func sameAsBase(base State, key string, val any) (same bool) {
	baseVal, ok := base.values[key]
	if !ok {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return baseVal == val
}
