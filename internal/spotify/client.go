package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Status classifies one playback poll.
type Status int

const (
	// StatusOK means a snapshot was captured.
	StatusOK Status = iota
	// StatusNoContent means nothing is playing.
	StatusNoContent
	// StatusUnauthorized means the token was rejected; the caller owns the
	// single refresh-and-retry.
	StatusUnauthorized
	// StatusUnavailable covers transport errors and any other non-success
	// response; transient, retried on the next cycle.
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoContent:
		return "no-content"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Snapshot is one immutable playback sample. SampledAt carries Go's
// monotonic clock reading taken when the response body was parsed; it is the
// epoch the estimator extrapolates from, decoupled from wall-clock changes.
type Snapshot struct {
	TrackID    string
	Title      string
	Artists    []string
	Album      string
	ArtURL     string
	ProgressMs int64
	Playing    bool
	SampledAt  time.Time
}

// ArtistLine returns the comma-joined artist list used for display and as
// resolver input (the resolver keeps only the primary artist).
func (s *Snapshot) ArtistLine() string {
	return strings.Join(s.Artists, ", ")
}

type Client struct {
	playerURL  string
	httpClient *http.Client
	now        func() time.Time
}

func NewClient(playerURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		playerURL:  playerURL,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// wire shapes of the current-playback response
type playbackResponse struct {
	IsPlaying  bool       `json:"is_playing"`
	ProgressMs int64      `json:"progress_ms"`
	Item       *trackItem `json:"item"`
}

type trackItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

// CurrentPlayback fetches the player state with the given bearer token and
// classifies the response. A snapshot is returned only with StatusOK.
func (c *Client) CurrentPlayback(ctx context.Context, token string) (*Snapshot, Status) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.playerURL, nil)
	if err != nil {
		log.Warnf("[Spotify] failed to build player request: %v", err)
		return nil, StatusUnavailable
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugf("[Spotify] player request failed: %v", err)
		return nil, StatusUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, StatusNoContent
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, StatusUnauthorized
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		log.Debugf("[Spotify] player returned status %d: %s", resp.StatusCode, string(body))
		return nil, StatusUnavailable
	}

	var payload playbackResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Debugf("[Spotify] failed to decode player response: %v", err)
		return nil, StatusUnavailable
	}

	// a 200 without a track item behaves like nothing playing
	if payload.Item == nil || payload.Item.ID == "" {
		return nil, StatusNoContent
	}

	return c.snapshotFrom(&payload), StatusOK
}

func (c *Client) snapshotFrom(payload *playbackResponse) *Snapshot {
	item := payload.Item

	artists := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}

	artURL := ""
	if len(item.Album.Images) > 0 {
		// spotify orders images largest first
		artURL = item.Album.Images[0].URL
	}

	return &Snapshot{
		TrackID:    item.ID,
		Title:      item.Name,
		Artists:    artists,
		Album:      item.Album.Name,
		ArtURL:     artURL,
		ProgressMs: payload.ProgressMs,
		Playing:    payload.IsPlaying,
		SampledAt:  c.now(),
	}
}
