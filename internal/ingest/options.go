package ingest

// Default tunables. Each has a matching field in Options.
const (
	DefaultSampleRows          = 150
	DefaultChunkSize           = 5000
	DefaultConfidenceThreshold = 0.35
	rowSampleLimit             = 10
)

// Options tunes a single ingestion run.
type Options struct {
	// SampleRows bounds how many body rows content-based inference scores.
	SampleRows int

	// ChunkSize bounds accepted-output parts; RejectedChunkSize bounds the
	// audit export independently.
	ChunkSize         int
	RejectedChunkSize int

	// AllowLandline permits 10-digit numbers (second digit after the area
	// code in [2-5]). Off by default: mobile-only.
	AllowLandline bool

	// PhoneFormat selects how valid numbers are rendered in the output.
	PhoneFormat PhoneFormat

	// ConfidenceThreshold is the phone-role confidence below which a
	// headerless run is flagged for manual review.
	ConfidenceThreshold float64

	// Workers enables parallel row classification when > 1. Output order is
	// input order regardless.
	Workers int

	// Override, when set, replaces automatic header/content inference.
	Override *Override
}

// DefaultOptions returns the options used when a caller has no config layer.
func DefaultOptions() Options {
	return Options{
		SampleRows:          DefaultSampleRows,
		ChunkSize:           DefaultChunkSize,
		RejectedChunkSize:   DefaultChunkSize,
		PhoneFormat:         FormatPunctuated,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Workers:             1,
	}
}

// normalized fills zero values with defaults so a partially populated
// Options behaves sensibly.
func (o Options) normalized() Options {
	if o.SampleRows <= 0 {
		o.SampleRows = DefaultSampleRows
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.RejectedChunkSize <= 0 {
		o.RejectedChunkSize = DefaultChunkSize
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}
