package session

import (
	"errors"
	"math"
	"testing"
)

func TestAccumulatorSums(t *testing.T) {
	var a Accumulator
	for _, km := range []float64{0, 0.5, 0.25, 0.743} {
		if err := a.Add(km); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if math.Abs(a.Km()-1.493) > 1e-9 {
		t.Fatalf("unexpected total: %v", a.Km())
	}
}

func TestAccumulatorRejectsNegative(t *testing.T) {
	var a Accumulator
	if err := a.Add(1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := a.Add(-0.1); !errors.Is(err, ErrInvalidIncrement) {
		t.Fatalf("expected ErrInvalidIncrement, got %v", err)
	}
	if a.Km() != 1 {
		t.Fatalf("total must be untouched after invalid add: %v", a.Km())
	}
}

func TestAccumulatorReset(t *testing.T) {
	var a Accumulator
	_ = a.Add(2)
	a.Reset()
	if a.Km() != 0 {
		t.Fatalf("expected zero after reset, got %v", a.Km())
	}
}
