package services

// PriceTable holds the flat credit prices of chat features.
type PriceTable struct {
	ChatBase  int64
	WebSearch int64
}

type Features struct {
	WebSearch bool
}

// Price is the number of credits reserved for one chat turn.
func (p PriceTable) Price(f Features) int64 {
	cost := p.ChatBase
	if f.WebSearch {
		cost += p.WebSearch
	}
	return cost
}
