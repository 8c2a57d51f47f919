package ids

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^(TL|TXN)-\d{13,}-[0-9a-f]{8}$`)

func TestNewListingID_Format(t *testing.T) {
	id := NewListingID()
	assert.Regexp(t, idPattern, id)
	assert.Contains(t, id, "TL-")
}

func TestNewTxnHash_Format(t *testing.T) {
	hash := NewTxnHash()
	assert.Regexp(t, idPattern, hash)
	assert.Contains(t, hash, "TXN-")
}

func TestIDs_UniqueWithinSameMillisecond(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewListingID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
