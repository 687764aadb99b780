package payments

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
)

// paymentKeyLen keeps the derived key inside Stripe's 255-char idempotency
// key limit with room for a scope prefix.
const paymentKeyLen = 32

// PaymentKey derives a deterministic idempotency key from the buyer, the
// listing, and the amount in minor units. Each field is length-prefixed
// before hashing so that adjacent fields cannot bleed into each other:
// ("a","bc") and ("ab","c") must never produce the same key.
func PaymentKey(buyerID, listingID string, amountCents int64) string {
	h := sha256.New()
	for _, field := range []string{buyerID, listingID, strconv.FormatInt(amountCents, 10)} {
		var size [8]byte
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))[:paymentKeyLen]
}
