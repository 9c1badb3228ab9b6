package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordEndTime(t *testing.T) {
	start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	rec := Record{SampleRate: 100.0, SampleCount: 101, StartTime: start}
	assert.True(t, start.Add(time.Second).Equal(rec.EndTime()))

	single := Record{SampleRate: 100.0, SampleCount: 1, StartTime: start}
	assert.True(t, start.Equal(single.EndTime()))

	rateless := Record{SampleCount: 100, StartTime: start}
	assert.True(t, start.Equal(rateless.EndTime()))
}

func TestRecordSrcName(t *testing.T) {
	rec := Record{Network: "NZ", Station: "WEL", Location: "10", Channel: "HHZ"}
	assert.Equal(t, "NZ_WEL_10_HHZ", rec.SrcName())

	blank := Record{Network: "NZ", Station: "WEL", Channel: "HHZ"}
	assert.Equal(t, "NZ_WEL__HHZ", blank.SrcName())
}

func TestRecordSetOrientation(t *testing.T) {
	rec := Record{Channel: "HHZ"}
	rec.SetOrientation('T')
	assert.Equal(t, "HHT", rec.Channel)

	short := Record{Channel: "HH"}
	short.SetOrientation('T')
	assert.Equal(t, "HH", short.Channel)
}
