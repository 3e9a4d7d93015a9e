package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"podcast-voice-service/internal/models"
)

// DefaultTTL is the lifetime of locally issued tokens.
const DefaultTTL = 24 * time.Hour

// VideoGrant is the room permission set carried in a token.
type VideoGrant struct {
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	Room           string `json:"room,omitempty"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

// Claims are the JWT claims of a room access token.
type Claims struct {
	jwt.RegisteredClaims
	Video    VideoGrant `json:"video"`
	Metadata string     `json:"metadata,omitempty"`
}

// LocalIssuer signs room access tokens with a shared API secret.
type LocalIssuer struct {
	apiKey    string
	apiSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewLocalIssuer creates a signer. ttl <= 0 uses DefaultTTL.
func NewLocalIssuer(apiKey, apiSecret string, ttl time.Duration) (*LocalIssuer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("api key and secret are required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LocalIssuer{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// Issue implements session.TokenIssuer.
func (i *LocalIssuer) Issue(_ context.Context, room, participant string, pc *models.PodcastContext) (string, error) {
	if room == "" || participant == "" {
		return "", fmt.Errorf("%w: room and participant are required", ErrAuthentication)
	}

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   participant,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Video: VideoGrant{
			RoomJoin:       true,
			Room:           room,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}
	if !pc.IsEmpty() {
		meta, err := json.Marshal(pc)
		if err != nil {
			return "", fmt.Errorf("%w: encode metadata: %v", ErrAuthentication, err)
		}
		claims.Metadata = string(meta)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.apiSecret)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %v", ErrAuthentication, err)
	}
	return signed, nil
}

// Verify parses a token signed by this issuer and returns its claims.
func (i *LocalIssuer) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.apiKey),
		jwt.WithTimeFunc(i.now),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.apiSecret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return claims, nil
}
