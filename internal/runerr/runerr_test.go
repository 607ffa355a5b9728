package runerr

import (
	"errors"
	"testing"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
)

func TestMappingErrorTolerable(t *testing.T) {
	tolerable := NewMappingError(0x1000, 0x1000, uc.ERR_MAP).(*MappingError)
	if !tolerable.Tolerable() {
		t.Errorf("ERR_MAP should be tolerable")
	}

	fatal := NewMappingError(0x1000, 0x1000, errors.New("boom")).(*MappingError)
	if fatal.Tolerable() {
		t.Errorf("an unrelated error should not be tolerable")
	}
}

func TestRunErrorNilPassthrough(t *testing.T) {
	if err := NewRunError(nil); err != nil {
		t.Errorf("NewRunError(nil) = %v, want nil", err)
	}
}

func TestInputShapeErrorUnwraps(t *testing.T) {
	inner := errors.New("missing field")
	err := NewInputShapeError("architecture", inner)
	if !errors.Is(err, inner) {
		t.Errorf("errors.Is should see through InputShapeError to %v", inner)
	}
}
