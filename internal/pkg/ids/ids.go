package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	listingPrefix = "TL"
	txnPrefix     = "TXN"
)

// generate builds "<PREFIX>-<millis>-<random>" identifiers. The random suffix
// keeps ids unique even when two are minted in the same millisecond.
func generate(prefix string) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(b))
}

// NewListingID mints a public listing identifier ("TL-...").
func NewListingID() string {
	return generate(listingPrefix)
}

// NewTxnHash mints a settlement hash ("TXN-..."), assigned when a
// transaction completes.
func NewTxnHash() string {
	return generate(txnPrefix)
}
