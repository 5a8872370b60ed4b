package nowplaying

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"ambientdeck/internal/display"
	"ambientdeck/internal/lyrics"
	"ambientdeck/internal/spotify"
)

// TokenSource hands out an access token for each poll and accepts the
// poller's verdict that the token is dead.
type TokenSource interface {
	// EnsureFreshToken returns the best available token, or "" when logged
	// out. It never fails the poll cycle.
	EnsureFreshToken(ctx context.Context) string
	// InvalidateExpiry marks the stored token expired so the next
	// EnsureFreshToken attempts a refresh.
	InvalidateExpiry()
}

// PlaybackClient fetches one playback sample.
type PlaybackClient interface {
	CurrentPlayback(ctx context.Context, token string) (*spotify.Snapshot, spotify.Status)
}

// LyricResolver fetches lyrics for a track, deduplicating repeat lookups.
type LyricResolver interface {
	Resolve(ctx context.Context, artists, title string) (*lyrics.Result, bool)
	Reset()
}

const (
	statusNotConnected = "Not connected — press l to log in"
	statusIdle         = "Nothing playing"
	statusUnavailable  = "Spotify unavailable"
	noLyricsMessage    = "no lyrics found"
)

// Poller drives the poll cycle: token, playback sample, lyric resolution,
// estimator update. One Cycle call per poll interval; lyric lookups run in
// the background and are dropped if the track changes before they land.
type Poller struct {
	tokens   TokenSource
	player   PlaybackClient
	resolver LyricResolver
	est      *Estimator
	scroll   *ScrollState
	sink     display.Sink

	mu          sync.Mutex
	lastTrackID string
	lastArtURL  string
	generation  uint64

	wg sync.WaitGroup
}

type PollerConfig struct {
	Tokens    TokenSource
	Player    PlaybackClient
	Resolver  LyricResolver
	Estimator *Estimator
	Scroll    *ScrollState
	Sink      display.Sink
}

func NewPoller(cfg PollerConfig) *Poller {
	sink := cfg.Sink
	if sink == nil {
		sink = display.Discard
	}
	est := cfg.Estimator
	if est == nil {
		est = NewEstimator(sink)
	}
	scroll := cfg.Scroll
	if scroll == nil {
		scroll = NewScrollState(0)
	}
	return &Poller{
		tokens:   cfg.Tokens,
		player:   cfg.Player,
		resolver: cfg.Resolver,
		est:      est,
		scroll:   scroll,
		sink:     sink,
	}
}

// Cycle runs one poll. It never returns an error; every failure mode maps to
// a status message and a cleared or stale display.
func (p *Poller) Cycle(ctx context.Context) {
	token := p.tokens.EnsureFreshToken(ctx)
	if token == "" {
		p.clearPlayback(statusNotConnected)
		return
	}

	snap, status := p.player.CurrentPlayback(ctx, token)
	if status == spotify.StatusUnauthorized {
		// the player is authoritative on expiry; force one refresh and
		// retry within the same cycle, never more
		p.tokens.InvalidateExpiry()
		token = p.tokens.EnsureFreshToken(ctx)
		if token == "" {
			p.clearPlayback(statusNotConnected)
			return
		}
		snap, status = p.player.CurrentPlayback(ctx, token)
	}

	switch status {
	case spotify.StatusOK:
		p.apply(ctx, snap)
	case spotify.StatusNoContent:
		p.clearPlayback(statusIdle)
	default:
		// includes a 401 that survived the forced refresh; the refresh
		// may have failed on a token-endpoint blip, so this is an
		// availability problem, not a logout
		p.clearPlayback(statusUnavailable)
	}
}

func (p *Poller) apply(ctx context.Context, snap *spotify.Snapshot) {
	p.sink.Render(display.RegionStatus, "")
	p.sink.Render(display.RegionTrack, snap.Title)
	p.sink.Render(display.RegionArtist, snap.ArtistLine())
	p.sink.Render(display.RegionAlbum, snap.Album)

	p.mu.Lock()
	if snap.ArtURL != p.lastArtURL {
		p.lastArtURL = snap.ArtURL
		p.sink.Render(display.RegionArt, snap.ArtURL)
	}

	trackChanged := snap.TrackID != p.lastTrackID
	if trackChanged {
		p.lastTrackID = snap.TrackID
		p.generation++
	}
	gen := p.generation
	p.mu.Unlock()

	if trackChanged {
		log.Debugf("[NowPlaying] track changed to %q (%s)", snap.Title, snap.TrackID)
		p.est.SetLines(nil)
		p.scroll.Clear()
		p.sink.Render(display.RegionLyric, "")
		p.sink.Render(display.RegionLyricBlock, "")

		p.wg.Add(1)
		go p.resolveLyrics(ctx, gen, snap.ArtistLine(), snap.Title)
	}

	p.est.SetSnapshot(snap)
	p.est.Tick()
}

func (p *Poller) resolveLyrics(ctx context.Context, gen uint64, artists, title string) {
	defer p.wg.Done()

	res, fetched := p.resolver.Resolve(ctx, artists, title)
	if !fetched {
		return
	}

	p.mu.Lock()
	stale := gen != p.generation
	p.mu.Unlock()
	if stale {
		// the track changed while the lookup was in flight
		return
	}

	switch {
	case len(res.Synced) > 0:
		p.scroll.Clear()
		p.sink.Render(display.RegionLyricBlock, "")
		p.est.SetLines(res.Synced)
		p.est.Tick()
	case res.Plain != "":
		p.est.SetLines(nil)
		p.scroll.SetText(res.Plain)
		p.sink.Render(display.RegionLyricBlock, p.scroll.Tick())
	default:
		p.est.SetLines(nil)
		p.scroll.Clear()
		p.sink.Render(display.RegionLyricBlock, noLyricsMessage)
	}
}

// clearPlayback blanks every playback region and shows a status line. The
// resolver latch is released so the same track refetches when playback
// resumes.
func (p *Poller) clearPlayback(status string) {
	p.mu.Lock()
	p.lastTrackID = ""
	p.lastArtURL = ""
	p.generation++
	p.mu.Unlock()

	p.resolver.Reset()
	p.est.Clear()
	p.scroll.Clear()

	p.sink.Render(display.RegionStatus, status)
	p.sink.Render(display.RegionTrack, "")
	p.sink.Render(display.RegionArtist, "")
	p.sink.Render(display.RegionAlbum, "")
	p.sink.Render(display.RegionArt, "")
	p.sink.Render(display.RegionLyric, "")
	p.sink.Render(display.RegionLyricBlock, "")
}

// SyncTick advances the lyric highlight between polls.
func (p *Poller) SyncTick() {
	p.est.Tick()
}

// ScrollTick pans the plain lyric block one step.
func (p *Poller) ScrollTick() {
	if p.scroll.Empty() {
		return
	}
	p.sink.Render(display.RegionLyricBlock, p.scroll.Tick())
}

// Wait blocks until in-flight lyric lookups settle.
func (p *Poller) Wait() {
	p.wg.Wait()
}
