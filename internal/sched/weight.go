package sched

// Weight multiplies the base quantum of a WRR task.
type Weight uint

const (
	WeightBackground Weight = 1
	WeightDefault    Weight = 10
)

// WeightResolver classifies a group identifier into a weight class. It must be
// a pure function of its argument.
type WeightResolver interface {
	Resolve(groupPath string) Weight
}

// WeightFunc adapts a plain function to WeightResolver.
type WeightFunc func(groupPath string) Weight

func (f WeightFunc) Resolve(groupPath string) Weight { return f(groupPath) }

// MarkerClassifier picks Marked when the byte at Index of the group path
// equals Marker, Unmarked otherwise (including paths too short to have Index).
type MarkerClassifier struct {
	Index    int
	Marker   byte
	Marked   Weight
	Unmarked Weight
}

// DefaultClassifier matches "/bg_non_interactive" style background groups.
func DefaultClassifier() MarkerClassifier {
	return MarkerClassifier{
		Index:    1,
		Marker:   'b',
		Marked:   WeightBackground,
		Unmarked: WeightDefault,
	}
}

func (c MarkerClassifier) Resolve(groupPath string) Weight {
	if c.Index >= 0 && c.Index < len(groupPath) && groupPath[c.Index] == c.Marker {
		return c.Marked
	}
	return c.Unmarked
}

// Quantum turns a group path into the weight and time slice (in ticks) a WRR
// task receives.
type Quantum struct {
	Base    uint
	Weights WeightResolver
}

// For returns the weight class of groupPath and Base*weight.
func (q Quantum) For(groupPath string) (Weight, uint) {
	w := q.Weights.Resolve(groupPath)
	return w, q.Base * uint(w)
}
