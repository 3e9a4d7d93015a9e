// Package token issues short-lived credentials for joining a voice room.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
)

// ErrAuthentication is returned when no credential could be obtained.
var ErrAuthentication = errors.New("voice authentication failed")

const defaultHTTPTimeout = 10 * time.Second

type tokenRequest struct {
	RoomName         string `json:"roomName"`
	ParticipantName  string `json:"participantName"`
	PodcastRSSURL    string `json:"podcastRssUrl,omitempty"`
	EpisodeURL       string `json:"episodeUrl,omitempty"`
	CurrentTimestamp *int64 `json:"currentTimestamp,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

// HTTPIssuer requests tokens from a remote issuance endpoint.
type HTTPIssuer struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPIssuer creates an issuer posting to endpoint. A nil client uses a
// direct client with a 10s timeout.
func NewHTTPIssuer(endpoint string, client *http.Client) *HTTPIssuer {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPIssuer{
		endpoint: endpoint,
		client:   client,
		logger:   logging.WithComponent("token"),
	}
}

// Issue implements session.TokenIssuer.
func (i *HTTPIssuer) Issue(ctx context.Context, room, participant string, pc *models.PodcastContext) (string, error) {
	body := tokenRequest{RoomName: room, ParticipantName: participant}
	if pc != nil {
		body.PodcastRSSURL = pc.PodcastRSSURL
		body.EpisodeURL = pc.EpisodeURL
		body.CurrentTimestamp = pc.CurrentTimestamp
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrAuthentication, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/json")

	i.logger.Debug().
		Str("room", room).
		Str("participant", participant).
		Bool("hasPodcastContext", !pc.IsEmpty()).
		Msg("Requesting voice token")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrAuthentication, err)
	}

	var out tokenResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(raw, &out)
		if out.Error != "" {
			return "", fmt.Errorf("%w: status %d: %s", ErrAuthentication, resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrAuthentication, err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: empty token", ErrAuthentication)
	}
	return out.Token, nil
}
