package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDesignIDs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{"all valid", "Checks parsing.\n\n@design(S1, S2, S3)", []string{"S1", "S2", "S3"}},
		{"bogus dropped", "@design(S1, bogus, S2)", []string{"S1", "S2"}},
		{"no marker", "just a docstring", nil},
		{"empty doc", "", nil},
		{"first marker only", "@design(S1) and later @design(S9)", []string{"S1"}},
		{"duplicates removed", "@design(S4, S4, S5)", []string{"S4", "S5"}},
		{"lowercase rejected", "@design(s1, S10)", []string{"S10"}},
		{"no spaces", "@design(S0,S7)", []string{"S0", "S7"}},
		{"empty list", "@design()", nil},
		{"suffix rejected", "@design(S1x, S2)", []string{"S2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDesignIDs(tt.doc))
		})
	}
}

func TestNewTest_RejectsInvalidSpecID(t *testing.T) {
	_, err := NewTest("T0", "a.py::test_x", []string{"S1", "X2"}, Run{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X2")
}

func TestNewTest_RejectsInvalidTestID(t *testing.T) {
	_, err := NewTest("7", "a.py::test_x", nil, Run{})
	require.Error(t, err)
}

func TestNewTest_CopiesSpecIDs(t *testing.T) {
	ids := []string{"S1"}
	tst, err := NewTest("T3", "a.py::test_x", ids, Run{Outcome: "passed"})
	require.NoError(t, err)
	ids[0] = "S9"
	assert.Equal(t, []string{"S1"}, tst.SpecIDs)
	assert.NoError(t, tst.Validate())
}

func TestTestID(t *testing.T) {
	assert.Equal(t, "T0", TestID(0))
	assert.Equal(t, "T12", TestID(12))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "2026-03-01T11:30:00Z", Timestamp(ts))
}
