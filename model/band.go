package model

// Band is the threshold class of a utilisation percentage.
type Band int

const (
	BandNominal Band = iota
	BandWarning
	BandCritical
)

const (
	warningFloor  = 60.0
	criticalFloor = 80.0
)

// Classify returns nominal below 60, warning below 80, critical otherwise.
func Classify(pct float64) Band {
	switch {
	case pct < warningFloor:
		return BandNominal
	case pct < criticalFloor:
		return BandWarning
	default:
		return BandCritical
	}
}

func (b Band) String() string {
	switch b {
	case BandWarning:
		return "warning"
	case BandCritical:
		return "critical"
	}
	return "ok"
}
