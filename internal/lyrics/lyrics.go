package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Line is one time-coded lyric line. OffsetMs is the playback offset at
// which the line becomes active.
type Line struct {
	OffsetMs int64
	Text     string
}

// Result holds whatever a lookup produced: a synced line set (primary), or a
// plain text block for the scrolling view when no synced lyrics exist. Both
// may be empty; "no lyrics" is a normal outcome.
type Result struct {
	Synced []Line
	Plain  string
}

func (r *Result) Empty() bool {
	return r == nil || (len(r.Synced) == 0 && r.Plain == "")
}

var lrcLinePattern = regexp.MustCompile(`^\[(\d{1,2}):(\d{2})(?:\.(\d{1,3}))?\](.*)$`)

// ParseLRC converts a time-coded lyric blob into an ordered line set.
// Offsets are minutes*60000 + seconds*1000 + fractional milliseconds, the
// fractional part right-padded to three digits. Lines with no text after
// trimming are discarded; the result is sorted ascending by offset.
func ParseLRC(raw string) []Line {
	if raw == "" {
		return nil
	}

	rawLines := strings.Split(raw, "\n")
	result := make([]Line, 0, len(rawLines))

	for _, rawLine := range rawLines {
		m := lrcLinePattern.FindStringSubmatch(strings.TrimSpace(rawLine))
		if m == nil {
			continue
		}

		text := strings.TrimSpace(m[4])
		if text == "" {
			continue
		}

		minutes, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		seconds, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}

		var fracMs int64
		if m[3] != "" {
			frac := m[3] + strings.Repeat("0", 3-len(m[3]))
			fracMs, err = strconv.ParseInt(frac, 10, 64)
			if err != nil {
				continue
			}
		}

		result = append(result, Line{
			OffsetMs: minutes*60000 + seconds*1000 + fracMs,
			Text:     text,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OffsetMs < result[j].OffsetMs
	})

	return result
}

// NormalizeTitle strips parenthesized and bracketed annotations, cuts any
// trailing " - ..." suffix, collapses whitespace and trims. Normalizing an
// already-normalized title returns the same string.
func NormalizeTitle(title string) string {
	s := stripDelimited(title, "(", ")")
	s = stripDelimited(s, "[", "]")

	if idx := strings.Index(s, " - "); idx >= 0 {
		s = s[:idx]
	}

	return strings.Join(strings.Fields(s), " ")
}

// stripDelimited removes every open..close group, leaving a space so
// surrounding words do not run together.
func stripDelimited(s, open, close string) string {
	for {
		start := strings.Index(s, open)
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], close)
		if end < 0 {
			break
		}
		s = s[:start] + " " + s[start+end+1:]
	}
	return s
}

// PrimaryArtist keeps the part of a comma-joined artist list before the
// first comma.
func PrimaryArtist(artists string) string {
	if idx := strings.Index(artists, ","); idx >= 0 {
		artists = artists[:idx]
	}
	return strings.TrimSpace(artists)
}

func resolverKey(primaryArtist, normalizedTitle string) string {
	return primaryArtist + "\x00" + normalizedTitle
}

// Resolver queries lrclib for lyrics, preferring a synced line set and
// falling back to plain text. It remembers the last resolved key and will
// not re-issue a fetch for it, success or failure, until Reset.
type Resolver struct {
	searchURL     string
	httpClient    *http.Client
	limiter       *rate.Limiter
	maxPlainChars int

	mu      sync.Mutex
	lastKey string
}

type ResolverConfig struct {
	SearchURL     string
	HTTPClient    *http.Client
	MaxPlainChars int
	// RequestsPerSecond throttles lookups toward the lyric source.
	RequestsPerSecond float64
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.SearchURL == "" {
		return nil, errors.New("empty lyric search url")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.MaxPlainChars <= 0 {
		cfg.MaxPlainChars = 2500
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}

	return &Resolver{
		searchURL:     cfg.SearchURL,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		maxPlainChars: cfg.MaxPlainChars,
	}, nil
}

// Reset clears the dedup key. Called on track change and on disconnect.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.lastKey = ""
	r.mu.Unlock()
}

// Resolve looks up lyrics for the given comma-joined artist list and raw
// title. The second return value is false when this (artist, title) pair was
// already resolved and no new lookup was issued. Lookup failures degrade to
// an empty Result; they are never returned as errors.
func (r *Resolver) Resolve(ctx context.Context, artists, title string) (*Result, bool) {
	primary := PrimaryArtist(artists)
	normalized := NormalizeTitle(title)

	key := resolverKey(primary, normalized)

	r.mu.Lock()
	if key == r.lastKey {
		r.mu.Unlock()
		return nil, false
	}
	// latch before fetching so a failed lookup is not retried until the
	// track changes
	r.lastKey = key
	r.mu.Unlock()

	if primary == "" || normalized == "" {
		return &Result{}, true
	}

	// strategy A: time-coded lyrics by normalized title + primary artist
	hit, err := r.search(ctx, primary, normalized)
	if err != nil {
		log.Debugf("[Lyrics] search %q / %q failed: %v", primary, normalized, err)
	}
	if hit != nil && hit.SyncedLyrics != "" {
		if lines := ParseLRC(hit.SyncedLyrics); len(lines) > 0 {
			return &Result{Synced: lines}, true
		}
	}

	// strategy B: plain text, normalized title first, then the original
	plain := ""
	if hit != nil {
		plain = strings.TrimSpace(hit.PlainLyrics)
	}
	if plain == "" && title != normalized {
		fallbackHit, err := r.search(ctx, primary, title)
		if err != nil {
			log.Debugf("[Lyrics] fallback search %q / %q failed: %v", primary, title, err)
		}
		if fallbackHit != nil {
			plain = strings.TrimSpace(fallbackHit.PlainLyrics)
		}
	}

	return &Result{Plain: r.truncatePlain(plain)}, true
}

// truncatePlain caps the body at maxPlainChars characters, cutting on a
// rune boundary so multi-byte lyrics stay valid utf-8.
func (r *Resolver) truncatePlain(plain string) string {
	runes := []rune(plain)
	if len(runes) <= r.maxPlainChars {
		return plain
	}
	return string(runes[:r.maxPlainChars]) + "…"
}

type searchHit struct {
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	SyncedLyrics string `json:"syncedLyrics"`
	PlainLyrics  string `json:"plainLyrics"`
}

// search queries the lyric source and returns the first result, or nil when
// nothing was found. Not-found is a normal outcome, not an error.
func (r *Resolver) search(ctx context.Context, artist, title string) (*searchHit, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(r.searchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lyric search url %q: %w", r.searchURL, err)
	}

	query := parsedURL.Query()
	query.Set("track_name", title)
	query.Set("artist_name", artist)
	parsedURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lyric request: %w", err)
	}
	req.Header.Set("User-Agent", "ambientdeck/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("lyric source returned status %d: %s", resp.StatusCode, string(body))
	}

	var hits []searchHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("failed to decode lyric response: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	return &hits[0], nil
}
