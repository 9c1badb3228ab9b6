// Package domain holds the canonical waveform record type shared by the
// batch scaler and the live relay.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Sample type codes carried in a record header.
const (
	SampleInteger byte = 'i'
	SampleFloat   byte = 'f'
	SampleDouble  byte = 'd'
	SampleASCII   byte = 'a'
)

// Record is one self-contained block of time-series amplitude samples
// with its header metadata. It is decoded from a single transport block,
// mutated in place by the scaler, re-encoded and discarded within the
// same pipeline iteration. Records are never buffered across iterations.
type Record struct {
	Sequence int    // header sequence number
	Quality  byte   // data quality indicator: 'D', 'R', 'Q' or 'M'
	Network  string // up to 2 characters
	Station  string // up to 5 characters
	Location string // up to 2 characters
	Channel  string // 3 characters; the third is the orientation code

	SampleRate  float64 // nominal rate in Hz; 0 marks the record rate-less
	SampleType  byte    // one of the Sample* codes
	SampleCount int     // sample count declared in the header

	StartTime time.Time
	Samples   []int32 // decoded samples; nil for non-integer encodings
}

// EndTime derives the time of the last sample from the start time, the
// sample count and the nominal rate. Records with fewer than two samples
// or without a rate end when they start.
func (r *Record) EndTime() time.Time {
	if r.SampleCount < 2 || r.SampleRate == 0.0 {
		return r.StartTime
	}
	span := float64(r.SampleCount-1) / r.SampleRate
	return r.StartTime.Add(time.Duration(math.Round(span * float64(time.Second))))
}

// SrcName returns the NET_STA_LOC_CHAN source identifier used for
// downstream stream naming and logging.
func (r *Record) SrcName() string {
	return fmt.Sprintf("%s_%s_%s_%s", r.Network, r.Station, r.Location, r.Channel)
}

// SetOrientation overwrites the third character of the channel code.
// Channels shorter than three characters are left untouched.
func (r *Record) SetOrientation(code byte) {
	if len(r.Channel) < 3 {
		return
	}
	b := []byte(r.Channel)
	b[2] = code
	r.Channel = string(b)
}
