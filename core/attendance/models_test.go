package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name                   string
		present, absent, late int
		want                   float64
	}{
		{name: "nothing recorded", want: 0},
		{name: "all present", present: 20, want: 100},
		{name: "18 of 20", present: 18, absent: 2, want: 90},
		{name: "late days count against", present: 2, late: 1, want: 66.67},
		{name: "never present", absent: 3, late: 2, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.present, tt.absent, tt.late))
		})
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, IsValidStatus(s), s)
	}
	assert.False(t, IsValidStatus("PRESENT"))
	assert.False(t, IsValidStatus(""))
}
