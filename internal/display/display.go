package display

// Region names a fixed slot on the dashboard. Every producer writes text
// into regions; it never touches the rendering surface directly.
type Region string

const (
	RegionTime        Region = "time"
	RegionDate        Region = "date"
	RegionWeatherTemp Region = "weather.temp"
	RegionWeatherDesc Region = "weather.desc"
	RegionSunrise     Region = "weather.sunrise"
	RegionSunset      Region = "weather.sunset"
	RegionUpdated     Region = "weather.updated"
	RegionQuoteText   Region = "quote.text"
	RegionQuoteAuthor Region = "quote.author"
	RegionQuoteMeta   Region = "quote.meta"
	RegionTrack       Region = "player.track"
	RegionArtist      Region = "player.artist"
	RegionAlbum       Region = "player.album"
	RegionArt         Region = "player.art"
	RegionLyric       Region = "player.lyric"
	RegionLyricBlock  Region = "player.lyricblock"
	RegionStatus      Region = "player.status"
)

// Sink accepts rendered text for a region. Implementations must be safe to
// call from multiple goroutines.
type Sink interface {
	Render(region Region, text string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(region Region, text string)

func (f SinkFunc) Render(region Region, text string) {
	f(region, text)
}

// Discard is a Sink that drops everything.
var Discard Sink = SinkFunc(func(Region, string) {})
