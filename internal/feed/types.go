// Package feed is the client for the OpenF1-style results feed the settlement
// loop consumes. The feed is a fallible upstream: sessions appear late,
// standings arrive incrementally during a live session, and calls can time
// out. Callers treat an empty result as "not yet", not as an error.
package feed

// apiSession is the wire shape of one session record.
type apiSession struct {
	SessionKey  int64  `json:"session_key"`
	SessionName string `json:"session_name"`
	SessionType string `json:"session_type"`
	Year        int    `json:"year"`
}

// apiPosition is the wire shape of one standings record.
type apiPosition struct {
	DriverNumber int    `json:"driver_number"`
	Position     int    `json:"position"`
	Date         string `json:"date"`
}
