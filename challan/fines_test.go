package challan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"roadcam/violations"
)

func TestFineAmount(t *testing.T) {
	assert.Equal(t, 500.0, FineAmount(violations.NoHelmet))
	assert.Equal(t, 1000.0, FineAmount(violations.CellPhone))
	assert.Equal(t, 1500.0, FineAmount(violations.Overspeeding))
	assert.Equal(t, 2000.0, FineAmount(violations.WrongWay))

	// Types without a table entry fall back to the default.
	assert.Equal(t, DefaultFine, FineAmount(violations.TripleRiding))
	assert.Equal(t, DefaultFine, FineAmount(violations.Type("jaywalking")))
}

func TestNewChallanNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewChallanNumber()
		assert.Regexp(t, `^CHAL-[0-9A-F]{8}$`, n)
		assert.False(t, seen[n], "challan numbers must not repeat")
		seen[n] = true
	}
}
