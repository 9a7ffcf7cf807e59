package program

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so a given listing always encodes to
// the same bytes regardless of which tool produced it.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("program: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalListing serializes a Listing to canonical CBOR bytes.
func MarshalListing(l *Listing) ([]byte, error) {
	return cborEncMode.Marshal(l)
}

// UnmarshalListing deserializes a Listing from CBOR bytes.
func UnmarshalListing(data []byte) (*Listing, error) {
	var l Listing
	if err := cbor.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("program: unmarshal listing: %w", err)
	}
	return &l, nil
}
