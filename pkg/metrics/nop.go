package metrics

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordFetch(string, string)                {}
func (Nop) RecordCacheLookup(bool)                    {}
func (Nop) RecordRateLimitWait(string, float64)       {}
func (Nop) RecordError(string)                        {}
func (Nop) RecordLatency(string, float64)             {}
func (Nop) RecordPillarScore(string, float64)         {}
func (Nop) RecordPrediction(float64, float64, string) {}
