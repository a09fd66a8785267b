package runid

import "testing"

func TestNew_Format(t *testing.T) {
	id := New()
	if err := Validate(id); err != nil {
		t.Fatalf("New() produced invalid id: %v", err)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate run identity after %d draws: %s", i, id)
		}
		seen[id] = true
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"a1b2c3d4", true},
		{"00000000", true},
		{"A1B2C3D4", false},
		{"a1b2c3d", false},
		{"a1b2c3d45", false},
		{"a1b2-3d4", false},
		{"", false},
	}
	for _, tc := range tests {
		err := Validate(tc.id)
		if tc.ok && err != nil {
			t.Errorf("Validate(%q) = %v, want nil", tc.id, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("Validate(%q) = nil, want error", tc.id)
		}
	}
}
