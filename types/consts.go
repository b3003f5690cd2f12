package types

const (
	// ZeroHash is the previousHash carried by the genesis block.
	ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

	// ISOTimeLayout is the fixed-precision ISO-8601 UTC rendering used for
	// every timestamp that takes part in a block hash preimage. Changing it
	// invalidates all previously computed hashes.
	ISOTimeLayout = "2006-01-02T15:04:05.000Z"

	// DateLayout is the calendar-day bucket rendering used by the stats series.
	DateLayout = "2006-01-02"
)
