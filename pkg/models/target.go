package models

// Transcript is one annotated transcript. Sequence is the mature transcript
// 5'→3'; CDSLength is the length of the coding region preceding the 3' UTR,
// used to re-anchor UTR-restricted coordinates.
type Transcript struct {
	ID        string `yaml:"id"`
	Gene      string `yaml:"gene"`
	Sequence  string `yaml:"sequence"`
	CDSLength int    `yaml:"cds_length"`
}

// Target describes what a scan request points at: either a known transcript
// (TranscriptID set) or a free-form custom sequence.
type Target struct {
	// Descriptor is the human-readable label (gene symbol, transcript id,
	// or "custom") used in cache listings and export filenames.
	Descriptor string

	// TranscriptID is set when the target is a known annotated transcript.
	TranscriptID string

	// UTROnly restricts the view to the 3' UTR of the transcript.
	UTROnly bool
}

// Known reports whether the target is an annotated transcript rather than a
// free-form sequence.
func (t Target) Known() bool { return t.TranscriptID != "" }
