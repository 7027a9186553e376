package rabbitmq

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer produces an HMAC-SHA256 signature over an outbound webhook
// payload, so the receiving endpoint can authenticate that a delivery
// genuinely originated here. The target-side verification (the original
// endpoint_verifier's concern) is out of scope; this is the producing
// half.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer keyed by secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the timestamp used and a "t=<unix>,v1=<hex hmac>" header
// value over "<timestamp>.<payload>", following the timestamped-HMAC
// convention so a replayed delivery can be rejected on the receiving end.
func (s *Signer) Sign(payload []byte) (timestamp int64, header string) {
	timestamp = time.Now().Unix()

	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)

	signature := hex.EncodeToString(mac.Sum(nil))

	return timestamp, fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
