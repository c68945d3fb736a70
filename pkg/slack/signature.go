package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// MaxSignatureAge bounds how old a signed request timestamp may be before it
// is rejected as a possible replay.
const MaxSignatureAge = 5 * time.Minute

// VerifySignature verifies a Slack v0 request signature: the hex HMAC-SHA256
// of "v0:<timestamp>:<body>" under the signing secret, prefixed with "v0=".
func VerifySignature(secret, timestamp string, body []byte, signatureHeader string) bool {
	if secret == "" || signatureHeader == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}

// TimestampFresh reports whether the signed timestamp is within MaxSignatureAge
// of now.
func TimestampFresh(timestamp string, now time.Time) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	return age <= MaxSignatureAge
}
