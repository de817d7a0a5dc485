package game

import (
	"encoding/base64"
	"math/rand/v2"
)

// newCode returns a six-digit session code. Codes only need to be hard to
// guess casually, not cryptographically strong.
func newCode() int {
	return 100000 + rand.IntN(900000)
}

// imageID derives the stable id for a submitted image URL.
func imageID(url string) string {
	return base64.StdEncoding.EncodeToString([]byte(url))
}
