package ports

import "github.com/ozym/slscale/internal/domain"

// BlockSink receives one fixed-size transport block per call.
type BlockSink func(block []byte) error

// Transformer applies the configured amplitude transform to one record
// and re-encodes it. A return of (0, nil) means the record failed the
// eligibility checks and was dropped; this is not an error. A non-nil
// error means the packing step failed, which is fatal for the record.
type Transformer interface {
	Process(rec *domain.Record, sink BlockSink) (packed int, err error)
}
