package learning

import (
	"testing"
)

func TestMinMaxScaler_ScalesToUnitRange(t *testing.T) {
	scaler := NewMinMaxScaler()
	err := scaler.Fit([][]float64{
		{0, 100},
		{10, 200},
		{5, 150},
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out, err := scaler.Transform([]float64{5, 150})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if out[0] != 0.5 || out[1] != 0.5 {
		t.Errorf("expected [0.5 0.5], got %v", out)
	}
}

func TestMinMaxScaler_ClampsOutOfRange(t *testing.T) {
	scaler := NewMinMaxScaler()
	if err := scaler.Fit([][]float64{{0}, {10}}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out, _ := scaler.Transform([]float64{-5})
	if out[0] != 0 {
		t.Errorf("below-range value should clamp to 0, got %f", out[0])
	}
	out, _ = scaler.Transform([]float64{50})
	if out[0] != 1 {
		t.Errorf("above-range value should clamp to 1, got %f", out[0])
	}
}

func TestMinMaxScaler_ConstantColumn(t *testing.T) {
	scaler := NewMinMaxScaler()
	if err := scaler.Fit([][]float64{{7}, {7}, {7}}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	out, _ := scaler.Transform([]float64{7})
	if out[0] != 0 {
		t.Errorf("constant column should transform to 0, got %f", out[0])
	}
}

func TestMinMaxScaler_Unfitted(t *testing.T) {
	scaler := NewMinMaxScaler()
	if _, err := scaler.Transform([]float64{1}); err == nil {
		t.Error("Transform before Fit should fail")
	}
}

func TestOneHotEncoder_EncodesKnownCategories(t *testing.T) {
	enc := NewOneHotEncoder()
	err := enc.Fit([][]string{
		{"gold", "modem"},
		{"silver", "router"},
		{"gold", "router"},
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// Column 0: gold, silver, unknown. Column 1: modem, router, unknown.
	if enc.Width() != 6 {
		t.Fatalf("expected width 6, got %d", enc.Width())
	}

	out, err := enc.Transform([]string{"gold", "router"})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := []float64{1, 0, 0, 0, 1, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, out)
		}
	}
}

func TestOneHotEncoder_UnknownBucket(t *testing.T) {
	enc := NewOneHotEncoder()
	if err := enc.Fit([][]string{{"a"}, {"b"}}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out, err := enc.Transform([]string{"never-seen"})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	// Slots: a, b, unknown.
	if out[0] != 0 || out[1] != 0 || out[2] != 1 {
		t.Errorf("unseen category should hit the unknown bucket, got %v", out)
	}
}

func TestOneHotEncoder_WidthMismatch(t *testing.T) {
	enc := NewOneHotEncoder()
	if err := enc.Fit([][]string{{"a", "x"}}); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := enc.Transform([]string{"a"}); err == nil {
		t.Error("Transform with wrong width should fail")
	}
}
