// Package mseed encodes and decodes fixed-length miniSEED data records.
//
// The relay only ever handles single records: one 512-byte transport
// block in, one mutated record out, re-encoded into one or more
// 512-byte blocks. Supported sample encodings are INT16, INT32, Steim1
// and Steim2 for decoding, and Steim1 and INT32 for encoding.
package mseed

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ozym/slscale/internal/domain"
)

// RecordLength is the native transport block size.
const RecordLength = 512

const (
	fixedHeaderLength = 48
	blocketteOffset   = 48
	dataOffset        = 64
)

// Sample encoding codes from the SEED blockette 1000 definition.
const (
	EncodingInt16   byte = 1
	EncodingInt32   byte = 3
	EncodingFloat32 byte = 4
	EncodingFloat64 byte = 5
	EncodingSteim1  byte = 10
	EncodingSteim2  byte = 11
)

var (
	ErrShortRecord  = fmt.Errorf("mseed: short record")
	ErrBadHeader    = fmt.Errorf("mseed: invalid fixed header")
	ErrNoBlockette  = fmt.Errorf("mseed: missing blockette 1000")
	ErrBadEncoding  = fmt.Errorf("mseed: unsupported sample encoding")
	ErrBadSteim     = fmt.Errorf("mseed: corrupt steim frame data")
	ErrRecordLength = fmt.Errorf("mseed: unexpected record length")
)

// sampleType maps an encoding code onto the header sample type tag.
func sampleType(encoding byte) (byte, bool) {
	switch encoding {
	case EncodingInt16, EncodingInt32, EncodingSteim1, EncodingSteim2:
		return domain.SampleInteger, true
	case EncodingFloat32:
		return domain.SampleFloat, true
	case EncodingFloat64:
		return domain.SampleDouble, true
	}
	return 0, false
}

// sampleRate recovers the nominal rate from the header factor and
// multiplier using the four-quadrant SEED convention.
func sampleRate(factor, multiplier int16) float64 {
	f, m := float64(factor), float64(multiplier)
	switch {
	case factor > 0 && multiplier > 0:
		return f * m
	case factor > 0 && multiplier < 0:
		return -f / m
	case factor < 0 && multiplier > 0:
		return -m / f
	case factor < 0 && multiplier < 0:
		return 1.0 / (f * m)
	}
	return 0.0
}

// rateToFactMult derives header factor and multiplier values for a
// nominal rate. Rates at or above 1 Hz are stored directly, lower rates
// as a negative sample period.
func rateToFactMult(rate float64) (int16, int16) {
	switch {
	case rate == 0.0:
		return 0, 0
	case rate >= 1.0 && rate <= 32767.0:
		return int16(math.Round(rate)), 1
	case rate > 0.0 && rate < 1.0:
		return int16(-math.Round(1.0 / rate)), 1
	}
	return 0, 0
}

// packTime writes a ten byte BTIME structure.
func packTime(buf []byte, at time.Time) {
	at = at.UTC()
	binary.BigEndian.PutUint16(buf[0:2], uint16(at.Year()))
	binary.BigEndian.PutUint16(buf[2:4], uint16(at.YearDay()))
	buf[4] = byte(at.Hour())
	buf[5] = byte(at.Minute())
	buf[6] = byte(at.Second())
	buf[7] = 0
	binary.BigEndian.PutUint16(buf[8:10], uint16(at.Nanosecond()/100000))
}

// unpackTime reads a ten byte BTIME structure.
func unpackTime(buf []byte) time.Time {
	year := int(binary.BigEndian.Uint16(buf[0:2]))
	doy := int(binary.BigEndian.Uint16(buf[2:4]))
	fract := int(binary.BigEndian.Uint16(buf[8:10]))
	at := time.Date(year, time.January, 1,
		int(buf[4]), int(buf[5]), int(buf[6]), fract*100000, time.UTC)
	return at.AddDate(0, 0, doy-1)
}

func packString(buf []byte, s string) {
	for i := range buf {
		if i < len(s) {
			buf[i] = s[i]
		} else {
			buf[i] = ' '
		}
	}
}

func unpackString(buf []byte) string {
	return strings.TrimRight(string(buf), " ")
}

func validQuality(q byte) bool {
	switch q {
	case 'D', 'R', 'Q', 'M':
		return true
	}
	return false
}

// packHeader fills the 48-byte fixed header plus the blockette 1000 for
// a single-blockette record.
func packHeader(block []byte, rec *domain.Record, sequence, count int, start time.Time, encoding byte) {
	seq := sequence % 1000000
	copy(block[0:6], fmt.Sprintf("%06d", seq))
	quality := rec.Quality
	if !validQuality(quality) {
		quality = 'D'
	}
	block[6] = quality
	block[7] = ' '
	packString(block[8:13], rec.Station)
	packString(block[13:15], rec.Location)
	packString(block[15:18], rec.Channel)
	packString(block[18:20], rec.Network)
	packTime(block[20:30], start)
	binary.BigEndian.PutUint16(block[30:32], uint16(count))
	factor, multiplier := rateToFactMult(rec.SampleRate)
	binary.BigEndian.PutUint16(block[32:34], uint16(factor))
	binary.BigEndian.PutUint16(block[34:36], uint16(multiplier))
	block[36] = 0 // activity flags
	block[37] = 0 // io flags
	block[38] = 0 // data quality flags
	block[39] = 1 // number of blockettes
	binary.BigEndian.PutUint32(block[40:44], 0)
	binary.BigEndian.PutUint16(block[44:46], dataOffset)
	binary.BigEndian.PutUint16(block[46:48], blocketteOffset)

	b1000 := block[blocketteOffset:]
	binary.BigEndian.PutUint16(b1000[0:2], 1000)
	binary.BigEndian.PutUint16(b1000[2:4], 0)
	b1000[4] = encoding
	b1000[5] = 1 // big endian word order
	b1000[6] = 9 // 2^9 = 512 byte records
	b1000[7] = 0
}

// unpackHeader parses the fixed header and locates the blockette 1000.
func unpackHeader(raw []byte) (*domain.Record, byte, int, error) {
	if len(raw) < dataOffset {
		return nil, 0, 0, ErrShortRecord
	}
	if !validQuality(raw[6]) {
		return nil, 0, 0, ErrBadHeader
	}

	sequence, err := strconv.Atoi(strings.TrimLeft(string(raw[0:6]), " 0"))
	if err != nil && strings.TrimLeft(string(raw[0:6]), " 0") != "" {
		return nil, 0, 0, ErrBadHeader
	}

	rec := &domain.Record{
		Sequence: sequence,
		Quality:  raw[6],
		Station:  unpackString(raw[8:13]),
		Location: unpackString(raw[13:15]),
		Channel:  unpackString(raw[15:18]),
		Network:  unpackString(raw[18:20]),
	}
	rec.StartTime = unpackTime(raw[20:30])
	rec.SampleCount = int(binary.BigEndian.Uint16(raw[30:32]))
	factor := int16(binary.BigEndian.Uint16(raw[32:34]))
	multiplier := int16(binary.BigEndian.Uint16(raw[34:36]))
	rec.SampleRate = sampleRate(factor, multiplier)

	blockettes := int(raw[39])
	offset := int(binary.BigEndian.Uint16(raw[46:48]))
	start := int(binary.BigEndian.Uint16(raw[44:46]))

	var encoding byte
	var found bool
	for i := 0; i < blockettes && offset >= fixedHeaderLength && offset+4 <= len(raw); i++ {
		kind := binary.BigEndian.Uint16(raw[offset : offset+2])
		next := int(binary.BigEndian.Uint16(raw[offset+2 : offset+4]))
		if kind == 1000 && offset+7 <= len(raw) {
			encoding = raw[offset+4]
			found = true
			break
		}
		if next == 0 {
			break
		}
		offset = next
	}
	if !found {
		return nil, 0, 0, ErrNoBlockette
	}

	kind, ok := sampleType(encoding)
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: %d", ErrBadEncoding, encoding)
	}
	rec.SampleType = kind

	if start == 0 {
		start = dataOffset
	}
	return rec, encoding, start, nil
}
