package oracle

import (
	"fmt"
	"strings"
	"time"
)

// mintRef builds the metadata reference for a freshly minted entrant asset.
// The reference encodes entrant id, name, final position, and session name.
func mintRef(entrantID int, name string, position int, sessionName string) string {
	return fmt.Sprintf("ipfs://Qm%d_%s_P%d_%s",
		entrantID, underscore(name), position, underscore(sessionName))
}

// podiumRef builds the refreshed metadata reference for a podium finisher.
// The millisecond timestamp salts the reference so repeated updates stay
// unique.
func podiumRef(entrantID int, name string, position int, now time.Time) string {
	positionText := fmt.Sprintf("P%d", position)
	if position == 1 {
		positionText = "Winner"
	}
	return fmt.Sprintf("ipfs://QmUpdated_%d_%s_%s_%d",
		entrantID, underscore(name), positionText, now.UnixMilli())
}

func underscore(s string) string {
	return strings.Join(strings.Fields(s), "_")
}
