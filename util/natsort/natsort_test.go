package natsort

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"ST01-2", "ST01-10", -1},
		{"ST01-010", "ST01-009", 1},
		{"ST01-001", "ST01-001", 0},
		{"st01-001", "ST01-002", -1},
		{"GD01-001", "ST01-001", -1},
		{"ST02-001", "ST10-001", -1},
		{"T-5", "T-05", 1},
		{"ST01-01", "ST01-1", -1},
		{"ST01", "ST01-001", -1},
		{"", "A", -1},
		{"A-99999999999999999999", "A-100000000000000000000", -1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Compare(c.a, c.b), "%s vs %s", c.a, c.b)
		assert.Equal(t, -c.want, Compare(c.b, c.a), "%s vs %s", c.b, c.a)
	}
}

func TestSortIDs(t *testing.T) {
	ids := []string{"ST01-10", "GD01-100", "ST01-2", "T-1", "GD01-20", "ST01-1"}
	slices.SortFunc(ids, Compare)

	want := []string{"GD01-20", "GD01-100", "ST01-1", "ST01-2", "ST01-10", "T-1"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("sorted ids mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, Less("SET-2", "SET-10"))
}
