package ports

import "github.com/ozym/slscale/internal/domain"

// Encoder packs one record into zero or more fixed-size transport
// blocks, invoking the sink once per produced block, and reports the
// number of samples actually packed.
type Encoder interface {
	Encode(rec *domain.Record, sink BlockSink) (packed int, err error)
}

// Decoder materialises a record from one transport block.
type Decoder interface {
	Decode(raw []byte) (*domain.Record, error)
}
