package geometry

import (
	"math"
	"testing"
)

// floatEquals is a helper for testing scalar float values with epsilon.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

func TestNewVector(t *testing.T) {
	v := NewVector(1, 2, 3)
	if v.X != 1 || v.Y != 2 || v.Z != 3 {
		t.Errorf("NewVector(1, 2, 3) = %v; want (1, 2, 3)", v)
	}
}

func TestVector_String(t *testing.T) {
	v := Vector3D{1.234, 5.678, -0.001}
	want := "(1.23, 5.68, -0.00)"
	if got := v.String(); got != want {
		t.Errorf("Vector3D.String() = %q; want %q", got, want)
	}
}

func TestVector_Arithmetic(t *testing.T) {
	v1 := Vector3D{1, 2, 3}
	v2 := Vector3D{3, 4, 5}

	t.Run("Add", func(t *testing.T) {
		want := Vector3D{4, 6, 8}
		if got := v1.Add(v2); !got.Eq(want) {
			t.Errorf("%v.Add(%v) = %v; want %v", v1, v2, got, want)
		}
	})

	t.Run("Sub", func(t *testing.T) {
		want := Vector3D{-2, -2, -2}
		if got := v1.Sub(v2); !got.Eq(want) {
			t.Errorf("%v.Sub(%v) = %v; want %v", v1, v2, got, want)
		}
	})

	t.Run("Mul", func(t *testing.T) {
		want := Vector3D{2, 4, 6}
		if got := v1.Mul(2); !got.Eq(want) {
			t.Errorf("%v.Mul(2) = %v; want %v", v1, got, want)
		}
	})

	t.Run("Div", func(t *testing.T) {
		want := Vector3D{0.5, 1, 1.5}
		got, err := v1.Div(2)
		if err != nil {
			t.Errorf("%v.Div(2) returned error %v", v1, err)
		}
		if !got.Eq(want) {
			t.Errorf("%v.Div(2) = %v; want %v", v1, got, want)
		}
	})

	t.Run("DivByZero", func(t *testing.T) {
		got, err := v1.Div(0)
		if err == nil {
			t.Errorf("%v.Div(0) should have returned an error, result=%v", v1, got)
		}
		if got.IsFinite() {
			t.Errorf("Div(0) should result in Inf coordinates, got %v", got)
		}
	})

	t.Run("Abs", func(t *testing.T) {
		want := Vector3D{1, 2, 3}
		if got := (Vector3D{-1, 2, -3}).Abs(); !got.Eq(want) {
			t.Errorf("Abs = %v; want %v", got, want)
		}
	})
}

func TestVector_Products(t *testing.T) {
	x := Vector3D{1, 0, 0}
	y := Vector3D{0, 1, 0}

	t.Run("Dot", func(t *testing.T) {
		if got := x.Dot(y); got != 0 {
			t.Errorf("Dot orthogonal = %v; want 0", got)
		}
		if got := x.Dot(Vector3D{2, 0, 0}); got != 2 {
			t.Errorf("Dot parallel = %v; want 2", got)
		}
	})

	t.Run("Cross", func(t *testing.T) {
		want := Vector3D{0, 0, 1}
		if got := x.Cross(y); !got.Eq(want) {
			t.Errorf("Cross X,Y = %v; want %v", got, want)
		}
		if got := x.Cross(x); !got.Eq(Zero) {
			t.Errorf("Cross self = %v; want zero", got)
		}
	})
}

func TestVector_Magnitude(t *testing.T) {
	v := Vector3D{2, 3, 6} // 2-3-6-7

	t.Run("Len", func(t *testing.T) {
		if got := v.Len(); got != 7 {
			t.Errorf("Len = %v; want 7", got)
		}
	})

	t.Run("LenSqr", func(t *testing.T) {
		if got := v.LenSqr(); got != 49 {
			t.Errorf("LenSqr = %v; want 49", got)
		}
	})

	t.Run("Normalize", func(t *testing.T) {
		got := v.Normalize()
		if !floatEquals(got.Len(), 1.0) {
			t.Errorf("Normalize length = %v; want 1", got.Len())
		}
	})

	t.Run("NormalizeZero", func(t *testing.T) {
		if got := Zero.Normalize(); !got.Eq(Zero) {
			t.Errorf("Normalize(0,0,0) = %v; want zero", got)
		}
	})
}

func TestVector_Limit(t *testing.T) {
	tests := []struct {
		name string
		v    Vector3D
		max  float64
		want float64
	}{
		{"Under limit", Vector3D{1, 0, 0}, 5, 1},
		{"Over limit", Vector3D{2, 3, 6}, 3.5, 3.5},
		{"Zero vector", Zero, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Limit(tt.max).Len(); !floatEquals(got, tt.want) {
				t.Errorf("%v.Limit(%v).Len() = %v; want %v", tt.v, tt.max, got, tt.want)
			}
		})
	}
}

func TestVector_Distance(t *testing.T) {
	v1 := Vector3D{1, 1, 1}
	v2 := Vector3D{3, 4, 7} // 2,3,6 -> 7

	if got := v1.DistanceTo(v2); got != 7 {
		t.Errorf("DistanceTo = %v; want 7", got)
	}
	if got := v1.DistanceSquaredTo(v2); got != 49 {
		t.Errorf("DistanceSquaredTo = %v; want 49", got)
	}
}

func TestVector_Lerp(t *testing.T) {
	got := Zero.Lerp(Vector3D{10, 10, 10}, 0.5)
	want := Vector3D{5, 5, 5}
	if !got.Eq(want) {
		t.Errorf("Lerp(0.5) = %v; want %v", got, want)
	}
}

func TestVector_IsFinite(t *testing.T) {
	if !(Vector3D{1, 2, 3}).IsFinite() {
		t.Error("finite vector reported as non finite")
	}
	if (Vector3D{math.NaN(), 0, 0}).IsFinite() {
		t.Error("NaN vector reported as finite")
	}
}

func TestVector_Eq(t *testing.T) {
	v := Vector3D{1, 2, 3}
	if !v.Eq(Vector3D{1, 2, 3}) {
		t.Error("Eq exact match failed")
	}
	if !v.Eq(Vector3D{1 + Epsilon/2, 2 - Epsilon/2, 3}) {
		t.Error("Eq epsilon match failed")
	}
	if v.Eq(Vector3D{1, 2, 3.1}) {
		t.Error("Eq mismatch failed")
	}
}

func BenchmarkVector_DistanceSquaredTo(b *testing.B) {
	v1 := Vector3D{1, 2, 3}
	v2 := Vector3D{4, 5, 6}
	for i := 0; i < b.N; i++ {
		_ = v1.DistanceSquaredTo(v2)
	}
}
