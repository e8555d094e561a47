package orders

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// trackingTokenBytes gives 256 bits of entropy per token.
const trackingTokenBytes = 32

// newTrackingToken returns a URL-safe random token for public order lookup.
func newTrackingToken() (string, error) {
	buf := make([]byte, trackingTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate tracking token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
