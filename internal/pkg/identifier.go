package pkg

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"

	"github.com/google/uuid"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const slugLength = 8

// GenerateGameID - generates a unique identifier for a game session.
func GenerateGameID() string {
	n, err := rand.Int(rand.Reader, big.NewInt(99999999))
	if err != nil {
		return ""
	}
	return n.String()
}

// GeneratePlayerID - generates a new unique player identifier.
func GeneratePlayerID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "error-generating-player-id"
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

// GenerateSlug - generates a short URL-safe slug.
func GenerateSlug() string {
	b := make([]byte, slugLength)
	for ix := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(slugAlphabet))))
		if err != nil {
			return uuid.NewString()[:slugLength]
		}
		b[ix] = slugAlphabet[n.Int64()]
	}
	return string(b)
}

// GenerateJoinCode - generates the opaque code required to join a private room.
func GenerateJoinCode() string {
	return uuid.NewString()
}
