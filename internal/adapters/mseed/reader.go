package mseed

import (
	"errors"
	"fmt"
	"io"

	"github.com/ozym/slscale/internal/domain"
)

// ReadRecords decodes consecutive 512-byte records from r and hands each
// one to fn. It stops at end of input, on a framing error, or when fn
// returns an error (which is passed through unchanged).
func ReadRecords(r io.Reader, fn func(rec *domain.Record) error) error {
	dec := NewDecoder()
	block := make([]byte, RecordLength)

	for {
		_, err := io.ReadFull(r, block)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated input", ErrShortRecord)
		}
		if err != nil {
			return err
		}

		rec, err := dec.Decode(block)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
