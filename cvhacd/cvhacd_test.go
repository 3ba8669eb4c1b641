package cvhacd

import (
	"errors"
	"testing"
)

func TestFactoryMatchesAvailability(t *testing.T) {
	eng, err := Factory()()
	if !Available() {
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("Factory()() error = %v, want ErrUnavailable", err)
		}
		if eng != nil {
			t.Error("stub returned an engine")
		}
		return
	}

	if err != nil {
		t.Fatalf("Factory()() error = %v", err)
	}
	defer eng.Release()

	if n := eng.NConvexHulls(); n != 0 {
		t.Errorf("fresh engine NConvexHulls() = %d, want 0", n)
	}
}
