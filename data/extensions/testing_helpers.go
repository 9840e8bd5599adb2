package extensions

import (
	"math"
	"testing"
)

func AssertAreEqual[T comparable](t *testing.T, name string, expected T, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual)
	}
}

func AssertNillability[T comparable](t *testing.T, name string, expected bool, actual *T) {
	t.Helper()
	if (actual == nil) != expected {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, (actual == nil))
	}
}

// AssertIsNaN fails unless actual is NaN
func AssertIsNaN(t *testing.T, name string, actual float64) {
	t.Helper()
	if !math.IsNaN(actual) {
		t.Fatalf("value mismatch for %s, expected NaN, got %v", name, actual)
	}
}

// AssertInDelta compares floats with a tolerance, NaN only matches NaN
func AssertInDelta(t *testing.T, name string, expected, actual, delta float64) {
	t.Helper()
	if math.IsNaN(expected) || math.IsNaN(actual) {
		if math.IsNaN(expected) != math.IsNaN(actual) {
			t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual)
		}
		return
	}
	if math.Abs(expected-actual) > delta {
		t.Fatalf("value mismatch for %s, expected %v, got %v (delta %v)", name, expected, actual, delta)
	}
}
