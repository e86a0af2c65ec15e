package domain

// Session is one external real-world event (a race) identified by a unique
// key. A session is fully processed at most once by the settlement loop.
type Session struct {
	Key  int64
	Name string
}

// PositionRecord is one raw standings record from the results feed. The feed
// may emit many records per entrant over the course of a session; records are
// assumed chronologically ordered, so the last record per entrant is final.
type PositionRecord struct {
	EntrantID int
	Position  int
}

// FinalStandings maps entrant id to final finishing position.
type FinalStandings map[int]int

// ReduceStandings collapses a chronologically ordered record stream to one
// final position per entrant. Later records overwrite earlier ones.
func ReduceStandings(records []PositionRecord) FinalStandings {
	final := make(FinalStandings, len(records))
	for _, r := range records {
		final[r.EntrantID] = r.Position
	}
	return final
}

// podiumSize is the number of finishing positions that trigger a metadata
// refresh.
const podiumSize = 3

// IsPodium reports whether position qualifies for a podium metadata update.
func IsPodium(position int) bool {
	return position >= 1 && position <= podiumSize
}
