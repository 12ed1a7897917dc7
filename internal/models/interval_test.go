package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"midnight", "00:00", 0, false},
		{"morning", "09:30", 570, false},
		{"last minute", "23:59", 1439, false},
		{"hour out of range", "24:00", 0, true},
		{"minute out of range", "10:60", 0, true},
		{"missing leading zero", "9:30", 0, true},
		{"seconds", "09:30:00", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	var payload struct {
		Start TimeOfDay `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"14:05"}`), &payload))
	assert.Equal(t, TimeOfDay(14*60+5), payload.Start)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"14:05"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"start":845}`), &payload))
}

func TestDateScanAndJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-03-14", d.String())

	require.NoError(t, d.Scan([]byte("2025-03-15T00:00:00Z")))
	assert.Equal(t, "2025-03-15", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15", v)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-15"`, string(out))

	_, err = ParseDate("15/03/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestNewInterval(t *testing.T) {
	date := MustDate("2025-06-01")

	t.Run("valid", func(t *testing.T) {
		iv, err := NewInterval(date, MustTimeOfDay("09:00"), MustTimeOfDay("11:00"))
		require.NoError(t, err)
		assert.Equal(t, 120, iv.Minutes())
		assert.Equal(t, 2*time.Hour, iv.Duration())
	})

	t.Run("start equals end", func(t *testing.T) {
		_, err := NewInterval(date, MustTimeOfDay("09:00"), MustTimeOfDay("09:00"))
		assert.ErrorIs(t, err, ErrEmptyInterval)
	})

	t.Run("start after end", func(t *testing.T) {
		_, err := NewInterval(date, MustTimeOfDay("11:00"), MustTimeOfDay("09:00"))
		assert.ErrorIs(t, err, ErrEmptyInterval)
	})

	t.Run("out of day", func(t *testing.T) {
		_, err := NewInterval(date, TimeOfDay(-1), MustTimeOfDay("09:00"))
		assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
	})
}

func TestIntervalValidate(t *testing.T) {
	date := MustDate("2025-06-01")

	assert.ErrorIs(t, Interval{}.Validate(), ErrInvalidDate)
	assert.ErrorIs(t, Interval{Date: date}.Validate(), ErrEmptyInterval)
	assert.NoError(t, Interval{Date: date, Start: MustTimeOfDay("23:00"), End: MustTimeOfDay("23:59")}.Validate())

	// a slot cannot run to midnight; bookings.end_minute is capped below 1440 to match
	assert.ErrorIs(t, Interval{Date: date, Start: MustTimeOfDay("23:00"), End: TimeOfDay(1440)}.Validate(), ErrInvalidTimeOfDay)
	_, err := ParseTimeOfDay("24:00")
	assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
}

func TestNewDate(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*60*60)
	d := NewDate(time.Date(2025, 6, 1, 2, 30, 0, 0, bangkok))

	assert.Equal(t, "2025-06-01", d.String())
	assert.Equal(t, time.UTC, d.Location())
	assert.True(t, d.Equal(MustDate("2025-06-01")))
}

func TestIntervalOverlaps(t *testing.T) {
	date := MustDate("2025-06-01")
	iv := func(start, end string) Interval {
		i, err := NewInterval(date, MustTimeOfDay(start), MustTimeOfDay(end))
		require.NoError(t, err)
		return i
	}

	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching end to start", iv("09:00", "10:00"), iv("10:00", "11:00"), false},
		{"touching start to end", iv("10:00", "11:00"), iv("09:00", "10:00"), false},
		{"partial overlap", iv("09:00", "10:00"), iv("09:30", "10:30"), true},
		{"contained", iv("09:00", "12:00"), iv("10:00", "11:00"), true},
		{"containing", iv("10:00", "11:00"), iv("09:00", "12:00"), true},
		{"identical", iv("09:00", "10:00"), iv("09:00", "10:00"), true},
		{"disjoint", iv("08:00", "09:00"), iv("13:00", "14:00"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}

	t.Run("different dates never overlap", func(t *testing.T) {
		other := Interval{Date: MustDate("2025-06-02"), Start: MustTimeOfDay("09:00"), End: MustTimeOfDay("10:00")}
		assert.False(t, iv("09:00", "10:00").Overlaps(other))
	})
}

func TestIntervalPrice(t *testing.T) {
	date := MustDate("2025-06-01")

	iv, err := NewInterval(date, MustTimeOfDay("09:00"), MustTimeOfDay("11:00"))
	require.NoError(t, err)
	assert.Equal(t, 200.0, iv.Price(100))

	iv, err = NewInterval(date, MustTimeOfDay("09:00"), MustTimeOfDay("09:20"))
	require.NoError(t, err)
	assert.Equal(t, 33.33, iv.Price(100))

	iv, err = NewInterval(date, MustTimeOfDay("09:00"), MustTimeOfDay("10:30"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, iv.Price(0))
	assert.Equal(t, 1.5, iv.Hours())
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(20000), ToMinorUnits(200))
	assert.Equal(t, int64(3333), ToMinorUnits(33.33))
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
}
