package mseed

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozym/slscale/internal/domain"
)

func testRecord(samples []int32) *domain.Record {
	return &domain.Record{
		Quality:     'D',
		Network:     "NZ",
		Station:     "WEL",
		Location:    "10",
		Channel:     "HHZ",
		SampleRate:  100.0,
		SampleType:  domain.SampleInteger,
		SampleCount: len(samples),
		StartTime:   time.Date(2016, time.June, 15, 10, 20, 30, 123400000, time.UTC),
		Samples:     samples,
	}
}

func encodeBlocks(t *testing.T, encoding byte, rec *domain.Record) [][]byte {
	t.Helper()
	enc, err := NewEncoder(encoding)
	require.NoError(t, err)

	var blocks [][]byte
	packed, err := enc.Encode(rec, func(block []byte) error {
		require.Len(t, block, RecordLength)
		blocks = append(blocks, block)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, len(rec.Samples), packed)
	return blocks
}

func decodeAll(t *testing.T, blocks [][]byte) (*domain.Record, []int32) {
	t.Helper()
	dec := NewDecoder()

	var first *domain.Record
	var samples []int32
	for _, block := range blocks {
		rec, err := dec.Decode(block)
		require.NoError(t, err)
		if first == nil {
			first = rec
		}
		samples = append(samples, rec.Samples...)
	}
	return first, samples
}

func TestRoundTripSteim1(t *testing.T) {
	samples := make([]int32, 300)
	for i := range samples {
		samples[i] = int32(i*17%1000 - 500)
	}
	rec := testRecord(samples)

	blocks := encodeBlocks(t, EncodingSteim1, rec)
	first, decoded := decodeAll(t, blocks)

	assert.Equal(t, samples, decoded)
	assert.Equal(t, "NZ_WEL_10_HHZ", first.SrcName())
	assert.Equal(t, 100.0, first.SampleRate)
	assert.Equal(t, domain.SampleInteger, first.SampleType)
	assert.True(t, rec.StartTime.Equal(first.StartTime))
}

func TestRoundTripSteim1MultiBlock(t *testing.T) {
	// large alternating differences force one 32-bit word per sample,
	// spilling the record across several blocks
	samples := make([]int32, 400)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1 << 20
		} else {
			samples[i] = -(1 << 20)
		}
	}
	rec := testRecord(samples)

	blocks := encodeBlocks(t, EncodingSteim1, rec)
	require.Greater(t, len(blocks), 1)

	_, decoded := decodeAll(t, blocks)
	assert.Equal(t, samples, decoded)

	// each continuation block starts where the previous one left off
	dec := NewDecoder()
	total := 0
	for _, block := range blocks {
		sub, err := dec.Decode(block)
		require.NoError(t, err)
		span := float64(total) / rec.SampleRate
		at := rec.StartTime.Add(time.Duration(math.Round(span * float64(time.Second))))
		assert.True(t, at.Equal(sub.StartTime), "block at %d samples", total)
		total += sub.SampleCount
	}
}

func TestRoundTripSteim2(t *testing.T) {
	// cycle through difference magnitudes that land in every Steim2
	// packing width, from four bits up to thirty
	widths := []int32{3, -3, 2, -1, 12, -12, 25, -25, 100, -100,
		400, -400, 10000, -10000, 200000000, -200000000, 1, 1, -1, -1}
	samples := make([]int32, 300)
	var level int32
	for i := range samples {
		level += widths[i%len(widths)]
		samples[i] = level
	}
	rec := testRecord(samples)

	blocks := encodeBlocks(t, EncodingSteim2, rec)
	first, decoded := decodeAll(t, blocks)

	assert.Equal(t, samples, decoded)
	assert.Equal(t, "NZ_WEL_10_HHZ", first.SrcName())
	assert.True(t, rec.StartTime.Equal(first.StartTime))
}

func TestRoundTripSteim2MultiBlock(t *testing.T) {
	// thirty-bit alternating differences pack one per word, spilling the
	// record across several blocks
	samples := make([]int32, 400)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1 << 27
		} else {
			samples[i] = -(1 << 27)
		}
	}
	rec := testRecord(samples)

	blocks := encodeBlocks(t, EncodingSteim2, rec)
	require.Greater(t, len(blocks), 1)

	_, decoded := decodeAll(t, blocks)
	assert.Equal(t, samples, decoded)
}

func TestEncodeSteim2DiffTooLarge(t *testing.T) {
	// a difference wider than thirty bits has no Steim2 representation
	enc, err := NewEncoder(EncodingSteim2)
	require.NoError(t, err)

	rec := testRecord([]int32{0, 1 << 30})
	_, err = enc.Encode(rec, func([]byte) error { return nil })
	assert.Error(t, err)
}

func TestRoundTripInt32(t *testing.T) {
	samples := make([]int32, 250)
	for i := range samples {
		samples[i] = int32(i) * 1000003
	}
	rec := testRecord(samples)

	blocks := encodeBlocks(t, EncodingInt32, rec)
	require.Len(t, blocks, 3) // 112 samples per block

	_, decoded := decodeAll(t, blocks)
	assert.Equal(t, samples, decoded)
}

func TestEncoderSequencesBlocks(t *testing.T) {
	samples := make([]int32, 250)
	rec := testRecord(samples)
	rec.Sequence = 999999

	blocks := encodeBlocks(t, EncodingInt32, rec)
	require.Len(t, blocks, 3)

	// the counter wraps at a million
	assert.Equal(t, "999999", string(blocks[0][0:6]))
	assert.Equal(t, "000000", string(blocks[1][0:6]))
	assert.Equal(t, "000001", string(blocks[2][0:6]))
}

func TestEncoderRejectsUnsupported(t *testing.T) {
	_, err := NewEncoder(EncodingInt16)
	assert.ErrorIs(t, err, ErrBadEncoding)

	_, err = NewEncoder(EncodingFloat32)
	assert.ErrorIs(t, err, ErrBadEncoding)
}

func TestDecodeInt16(t *testing.T) {
	rec := testRecord(nil)
	block := make([]byte, RecordLength)
	packHeader(block, rec, 1, 3, rec.StartTime, EncodingInt16)
	for i, v := range []int16{100, -200, 300} {
		binary.BigEndian.PutUint16(block[dataOffset+2*i:], uint16(v))
	}

	out, err := NewDecoder().Decode(block)
	require.NoError(t, err)
	assert.Equal(t, []int32{100, -200, 300}, out.Samples)
}

func TestDecodeSteim2(t *testing.T) {
	// hand-packed frame: X0=10, Xn=13, then one word of four byte
	// differences (nibble 1): the leading diff is discarded and the rest
	// integrate forward from X0
	block := make([]byte, RecordLength)
	rec := testRecord(nil)
	packHeader(block, rec, 1, 4, rec.StartTime, EncodingSteim2)

	frame := block[dataOffset:]
	binary.BigEndian.PutUint32(frame[0:4], 1<<uint(30-2*3)) // word 3 holds byte diffs
	binary.BigEndian.PutUint32(frame[4:8], 10)              // X0
	binary.BigEndian.PutUint32(frame[8:12], 13)             // Xn
	copy(frame[12:16], []byte{0xFF, 1, 1, 1})               // diffs -1,1,1,1

	out, err := NewDecoder().Decode(block)
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 11, 12, 13}, out.Samples)
}

func TestDecodeErrors(t *testing.T) {
	dec := NewDecoder()

	_, err := dec.Decode(make([]byte, 100))
	assert.ErrorIs(t, err, ErrRecordLength)

	// zeroed block has no valid quality byte
	_, err = dec.Decode(make([]byte, RecordLength))
	assert.ErrorIs(t, err, ErrBadHeader)

	// valid header but no blockette 1000
	rec := testRecord([]int32{1, 2, 3})
	blocks := encodeBlocks(t, EncodingInt32, rec)
	block := blocks[0]
	block[39] = 0
	_, err = dec.Decode(block)
	assert.ErrorIs(t, err, ErrNoBlockette)
}

func TestDecodeSteimIntegrityCheck(t *testing.T) {
	rec := testRecord([]int32{1, 2, 3, 4})
	blocks := encodeBlocks(t, EncodingSteim1, rec)
	block := blocks[0]

	// corrupt the reverse integration constant
	binary.BigEndian.PutUint32(block[dataOffset+8:], 9999)
	_, err := NewDecoder().Decode(block)
	assert.ErrorIs(t, err, ErrBadSteim)
}

func TestReadRecords(t *testing.T) {
	first := testRecord([]int32{1, 2, 3, 4, 5})
	second := testRecord([]int32{10, 20, 30})
	second.Station = "BFZ"

	var buf bytes.Buffer
	for _, rec := range []*domain.Record{first, second} {
		for _, block := range encodeBlocks(t, EncodingSteim1, rec) {
			buf.Write(block)
		}
	}

	var stations []string
	err := ReadRecords(&buf, func(rec *domain.Record) error {
		stations = append(stations, rec.Station)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"WEL", "BFZ"}, stations)
}

func TestReadRecordsTruncated(t *testing.T) {
	rec := testRecord([]int32{1, 2, 3})
	block := encodeBlocks(t, EncodingSteim1, rec)[0]

	err := ReadRecords(bytes.NewReader(block[:300]), func(*domain.Record) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrShortRecord)
}
