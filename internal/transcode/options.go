package transcode

const (
	DefaultMaxWidth  = 800
	DefaultMaxHeight = 600
	DefaultQuality   = 0.7
	DefaultMaxSizeKB = 200

	// QualityFloor is the lowest quality the corrective pass will use.
	QualityFloor = 0.1
)

// Options bounds the transcoded output. Zero values fall back to the
// package defaults.
type Options struct {
	MaxWidth  int     `json:"maxWidth,omitempty"`
	MaxHeight int     `json:"maxHeight,omitempty"`
	Quality   float64 `json:"quality,omitempty"`
	MaxSizeKB int     `json:"maxSizeKB,omitempty"`
}

func DefaultOptions() Options {
	return Options{
		MaxWidth:  DefaultMaxWidth,
		MaxHeight: DefaultMaxHeight,
		Quality:   DefaultQuality,
		MaxSizeKB: DefaultMaxSizeKB,
	}
}

// Normalize fills unset fields with defaults and clamps quality into (0,1].
func (o Options) Normalize() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality > 1 {
		o.Quality = 1
	}
	if o.MaxSizeKB <= 0 {
		o.MaxSizeKB = DefaultMaxSizeKB
	}
	return o
}

// MaxBytes is the size budget in bytes.
func (o Options) MaxBytes() int {
	return o.MaxSizeKB * 1024
}
