package transfer

import "github.com/golang-jwt/jwt/v5"

// StateClaims rides through the OAuth state parameter so the callback knows
// which artist the handshake belongs to.
type StateClaims struct {
	ArtistID string `json:"artist_id"`
	jwt.RegisteredClaims
}
