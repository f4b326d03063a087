package preview

// Transform is a pure per-sample pixel function applied during ingest.
//
// Implementations must be stateless: the same input byte always yields the
// same output byte, with no side effects. The ingest step applies the
// transform while holding the slot lock, so a slow transform stalls readers
// for the duration.
type Transform func(byte) byte

// Invert flips every bit of the sample: f(x) = x XOR 0xFF. Applying it
// twice restores the original value.
func Invert(x byte) byte { return x ^ 0xFF }

// Identity returns the sample unchanged.
func Identity(x byte) byte { return x }

// Chain composes transforms into one, applied left to right.
func Chain(fs ...Transform) Transform {
	return func(x byte) byte {
		for _, f := range fs {
			x = f(x)
		}
		return x
	}
}
