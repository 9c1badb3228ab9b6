package mseed

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ozym/slscale/internal/domain"
	"github.com/ozym/slscale/internal/ports"
)

// Encoder packs records into fixed 512-byte miniSEED blocks. The zero
// value is not usable; call NewEncoder.
type Encoder struct {
	encoding byte
}

// NewEncoder returns an encoder for the given sample encoding. Steim1,
// Steim2 and INT32 are supported.
func NewEncoder(encoding byte) (*Encoder, error) {
	switch encoding {
	case EncodingSteim1, EncodingSteim2, EncodingInt32:
		return &Encoder{encoding: encoding}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrBadEncoding, encoding)
}

// Encode packs one record into as many blocks as its samples require,
// calling sink once per block, and reports the number of samples packed.
// Records with no decoded samples produce no blocks.
func (e *Encoder) Encode(rec *domain.Record, sink ports.BlockSink) (int, error) {
	packed := 0
	sequence := rec.Sequence
	var prev int32

	for packed < len(rec.Samples) {
		block := make([]byte, RecordLength)
		rest := rec.Samples[packed:]

		var consumed int
		switch e.encoding {
		case EncodingSteim1:
			consumed = encodeSteim1(block[dataOffset:], rest, prev)
		case EncodingSteim2:
			consumed = encodeSteim2(block[dataOffset:], rest, prev)
		case EncodingInt32:
			consumed = len(rest)
			if max := (RecordLength - dataOffset) / 4; consumed > max {
				consumed = max
			}
			for i := 0; i < consumed; i++ {
				binary.BigEndian.PutUint32(block[dataOffset+4*i:], uint32(rest[i]))
			}
		}
		if consumed == 0 {
			return packed, fmt.Errorf("mseed: no samples packed into block")
		}

		start := blockStart(rec, packed)
		packHeader(block, rec, sequence, consumed, start, e.encoding)

		if err := sink(block); err != nil {
			return packed, err
		}

		prev = rest[consumed-1]
		packed += consumed
		sequence++
	}

	return packed, nil
}

// blockStart offsets the record start time by the samples already packed
// into earlier blocks.
func blockStart(rec *domain.Record, packed int) time.Time {
	if packed == 0 || rec.SampleRate == 0.0 {
		return rec.StartTime
	}
	span := float64(packed) / rec.SampleRate
	return rec.StartTime.Add(time.Duration(math.Round(span * float64(time.Second))))
}
