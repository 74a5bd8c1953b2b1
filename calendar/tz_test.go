package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	mazatlan, err := time.LoadLocation("America/Mazatlan")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"local minutes", "2025-09-23T06:30", time.Date(2025, 9, 23, 6, 30, 0, 0, mazatlan)},
		{"space separator", "2025-09-23 06:30:15", time.Date(2025, 9, 23, 6, 30, 15, 0, mazatlan)},
		{"date only", "2025-09-23", time.Date(2025, 9, 23, 0, 0, 0, 0, mazatlan)},
		{"offset wins", "2025-09-23T06:30:00-05:00", time.Date(2025, 9, 23, 11, 30, 0, 0, time.UTC)},
		{"zulu", "2025-09-23T06:30:00Z", time.Date(2025, 9, 23, 6, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.in, mazatlan)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}

	_, err = ParseTime("yesterday", nil)
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	got, err := Convert("2025-09-23T06:30", "America/Mazatlan", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-23T13:30:00Z", got.Format(time.RFC3339))

	got, err = Convert("2025-09-23T06:30:00Z", "America/Mazatlan", "America/Chicago")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-23T01:30:00-05:00", got.Format(time.RFC3339))

	_, err = Convert("2025-09-23T06:30", "Nowhere/Land", "UTC")
	assert.Error(t, err)
}
