package perf

import "fmt"

// Quality is the render quality the presentation layer should use.
type Quality int

const (
	QualityFull Quality = iota
	QualityBalanced
	QualityReduced
)

func (q Quality) String() string {
	switch q {
	case QualityFull:
		return "full"
	case QualityBalanced:
		return "balanced"
	case QualityReduced:
		return "reduced"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// MarshalText implements encoding.TextMarshaler
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// Averages are the window means of the reported load figures.
type Averages struct {
	CPU         float64 `json:"cpu"`
	Memory      float64 `json:"memory"`
	Temperature float64 `json:"temperature"`
	Samples     int     `json:"samples"`
}

// Report is what the status endpoint serves.
type Report struct {
	Averages Averages `json:"averages"`
	Quality  Quality  `json:"quality"`
}
