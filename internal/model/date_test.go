package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateDaysUntil(t *testing.T) {
	today := NewDate(2026, time.March, 1)

	assert.Equal(t, -1, today.DaysUntil(NewDate(2026, time.February, 28)))
	assert.Equal(t, 0, today.DaysUntil(today))
	assert.Equal(t, 15, today.DaysUntil(today.AddDays(15)))
	assert.Equal(t, 365, today.DaysUntil(NewDate(2027, time.March, 1)))
}

func TestDateDaysUntilFarDates(t *testing.T) {
	today := NewDate(2026, time.October, 19)

	assert.Equal(t, 172834, today.DaysUntil(NewDate(2500, time.January, 1)))
	assert.Equal(t, -172834, NewDate(2500, time.January, 1).DaysUntil(today))
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	late := time.Date(2026, time.January, 5, 23, 30, 0, 0, loc)

	assert.Equal(t, "2026-01-05", DateOf(late).String())
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	out, err := json.Marshal(wrapper{D: NewDate(2026, time.October, 19)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2026-10-19"}`, string(out))

	var in wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2025-12-31"}`), &in))
	assert.True(t, in.D.Equal(NewDate(2025, time.December, 31)))

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &in))
	assert.True(t, in.D.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"31/12/2025"}`), &in))
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{name: "time", src: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), want: "2026-04-02"},
		{name: "string", src: "2026-04-02", want: "2026-04-02"},
		{name: "bytes with time", src: []byte("2026-04-02 00:00:00"), want: "2026-04-02"},
		{name: "nil", src: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, tt.want, d.String())
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestColorWorse(t *testing.T) {
	assert.Equal(t, ColorRed, ColorRed.Worse(ColorYellow))
	assert.Equal(t, ColorRed, ColorGreen.Worse(ColorRed))
	assert.Equal(t, ColorYellow, ColorGreen.Worse(ColorYellow))
	assert.Equal(t, ColorGreen, ColorGreen.Worse(ColorGreen))
}
