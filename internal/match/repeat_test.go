package match

import "testing"

func TestIsRepeat(t *testing.T) {
	t.Parallel()

	recent := []string{"Turmeric Capsules", "Magnesium Glycinate"}

	if !IsRepeat("Turmeric Capsules", recent) {
		t.Fatalf("product inside the window should be a repeat")
	}
	if !IsRepeat("Magnesium Glycinate", recent) {
		t.Fatalf("product inside the window should be a repeat")
	}
	if IsRepeat("Vitamin D3", recent) {
		t.Fatalf("product outside the window should not be a repeat")
	}
	if IsRepeat("turmeric capsules", recent) {
		t.Fatalf("matching is exact, case differences are not repeats")
	}
	if IsRepeat("Turmeric Capsules", nil) {
		t.Fatalf("empty window should never report a repeat")
	}
}
