package metrics

// Summary provides an aggregate of recorded actions since process start.
type Summary struct {
	Count          int     `json:"count"`
	SuccessCount   int     `json:"success_count"`
	ErrorCount     int     `json:"error_count"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
	TotalTokens    int     `json:"total_tokens"`
	AvgTimeSeconds float64 `json:"avg_time_seconds"`

	ByFeature  map[string]int `json:"by_feature"`
	ByProvider map[string]int `json:"by_provider"`
	ByOutcome  map[string]int `json:"by_outcome"`

	totalSeconds float64
}

func newSummary() Summary {
	return Summary{
		ByFeature:  make(map[string]int),
		ByProvider: make(map[string]int),
		ByOutcome:  make(map[string]int),
	}
}

func (s *Summary) add(m Metric) {
	s.Count++
	if m.Success() {
		s.SuccessCount++
	} else {
		s.ErrorCount++
	}
	s.TotalCostUSD += m.CostUSD
	s.TotalTokens += m.TotalTokens
	s.totalSeconds += m.TotalSeconds
	s.AvgTimeSeconds = s.totalSeconds / float64(s.Count)

	s.ByFeature[m.Feature]++
	if m.Provider != "" {
		s.ByProvider[m.Provider]++
	}
	s.ByOutcome[string(m.Outcome)]++
}

func (s Summary) clone() Summary {
	out := s
	out.ByFeature = copyCounts(s.ByFeature)
	out.ByProvider = copyCounts(s.ByProvider)
	out.ByOutcome = copyCounts(s.ByOutcome)
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
