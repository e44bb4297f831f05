package cutup

import (
	"math"
	"strconv"
	"strings"
)

// Region is what an operation gets to work on.
type Region struct {
	Window Window

	// Channels holds the editable channels sliced to the window. Writes here
	// are the only effect an operation may have.
	Channels [][]int

	// Source holds the full editable channels for reading material from
	// elsewhere in the recording. Do not write through it.
	Source [][]int

	BitDepth int
}

// Len returns the window length in frames.
func (r *Region) Len() int {
	return r.Window.Length
}

// ApplyFunc transforms a region in place.
type ApplyFunc func(r *Region, rng Rand) error

// Operation is one named transform with its selection weight.
type Operation struct {
	Name   string
	Weight float64
	Apply  ApplyFunc
}

// Registry is an immutable weighted pool of operations. Selection order is
// registration order.
type Registry struct {
	ops   []Operation
	index map[string]int
	total float64
}

// NewRegistry validates and freezes ops. Names must be unique and non-empty,
// weights finite and non-negative, and every operation must have an Apply.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{
		ops:   make([]Operation, 0, len(ops)),
		index: make(map[string]int, len(ops)),
	}
	for _, op := range ops {
		if op.Name == "" {
			return nil, Errorf(ConfigurationError, "operation without name")
		}
		if _, ok := r.index[op.Name]; ok {
			return nil, Errorf(ConfigurationError, "duplicate operation %v", op.Name)
		}
		if !validWeight(op.Weight) {
			return nil, Errorf(ConfigurationError, "operation %v has invalid weight %v", op.Name, op.Weight)
		}
		if op.Apply == nil {
			return nil, Errorf(ConfigurationError, "operation %v has no apply", op.Name)
		}
		r.index[op.Name] = len(r.ops)
		r.ops = append(r.ops, op)
		r.total += op.Weight
	}
	return r, nil
}

func validWeight(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0) && w >= 0
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.ops)
}

// TotalWeight is the sum of all weights.
func (r *Registry) TotalWeight() float64 {
	return r.total
}

// Names lists operations in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ops))
	for i, op := range r.ops {
		names[i] = op.Name
	}
	return names
}

// Lookup returns the named operation.
func (r *Registry) Lookup(name string) (Operation, bool) {
	i, ok := r.index[name]
	if !ok {
		return Operation{}, false
	}
	return r.ops[i], true
}

// Select draws one operation with probability weight/total.
func (r *Registry) Select(rng Rand) (Operation, error) {
	if r == nil || len(r.ops) == 0 {
		return Operation{}, Errorf(ConfigurationError, "empty operation registry")
	}
	if r.total <= 0 {
		return Operation{}, Errorf(ConfigurationError, "operation registry has zero total weight")
	}

	x := rng.Float64() * r.total
	var cum float64
	last := -1
	for i, op := range r.ops {
		if op.Weight == 0 {
			continue
		}
		cum += op.Weight
		last = i
		if x < cum {
			return op, nil
		}
	}
	// Rounding can leave x a hair above the final cumulative sum.
	return r.ops[last], nil
}

// WithWeights returns a copy of the registry with some weights replaced.
// Unknown names and unusable weights are InvalidParameter.
func (r *Registry) WithWeights(weights map[string]float64) (*Registry, error) {
	ops := make([]Operation, len(r.ops))
	copy(ops, r.ops)

	for name, w := range weights {
		i, ok := r.index[name]
		if !ok {
			return nil, Errorf(InvalidParameter, "unknown operation %q in weighting", name)
		}
		if !validWeight(w) {
			return nil, Errorf(InvalidParameter, "invalid weight %v for %q", w, name)
		}
		ops[i].Weight = w
	}
	return NewRegistry(ops...)
}

// ParseWeights parses a weighting such as "reverse=4, silence=0".
// An empty string yields an empty map.
func ParseWeights(s string) (map[string]float64, error) {
	weights := make(map[string]float64)
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		name, value, ok := strings.Cut(field, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, Errorf(InvalidParameter, "malformed weighting entry %q, want name=weight", field)
		}
		if _, dup := weights[name]; dup {
			return nil, Errorf(InvalidParameter, "operation %q weighted twice", name)
		}

		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || !validWeight(w) {
			return nil, Errorf(InvalidParameter, "invalid weight %q for %q", value, name)
		}
		weights[name] = w
	}
	return weights, nil
}
