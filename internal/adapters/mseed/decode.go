package mseed

import (
	"encoding/binary"
	"fmt"

	"github.com/ozym/slscale/internal/domain"
)

// Decoder materialises records from 512-byte miniSEED blocks.
type Decoder struct{}

// NewDecoder returns a block decoder.
func NewDecoder() *Decoder { return &Decoder{} }

// Decode parses the fixed header, the blockette 1000 and, for integer
// encodings, the data samples. Float records are returned with their
// header fields filled and a nil sample slice; they are structurally
// valid but not transformable.
func (d *Decoder) Decode(raw []byte) (*domain.Record, error) {
	if len(raw) != RecordLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrRecordLength, len(raw))
	}

	rec, encoding, start, err := unpackHeader(raw)
	if err != nil {
		return nil, err
	}
	if start < fixedHeaderLength || start > len(raw) {
		return nil, ErrBadHeader
	}
	data := raw[start:]

	count := rec.SampleCount
	switch encoding {
	case EncodingInt16:
		if len(data) < 2*count {
			return nil, ErrShortRecord
		}
		rec.Samples = make([]int32, count)
		for i := 0; i < count; i++ {
			rec.Samples[i] = int32(int16(binary.BigEndian.Uint16(data[2*i:])))
		}
	case EncodingInt32:
		if len(data) < 4*count {
			return nil, ErrShortRecord
		}
		rec.Samples = make([]int32, count)
		for i := 0; i < count; i++ {
			rec.Samples[i] = int32(binary.BigEndian.Uint32(data[4*i:]))
		}
	case EncodingSteim1:
		if rec.Samples, err = decodeSteim1(data, count); err != nil {
			return nil, err
		}
	case EncodingSteim2:
		if rec.Samples, err = decodeSteim2(data, count); err != nil {
			return nil, err
		}
	}

	return rec, nil
}
