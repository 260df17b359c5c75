package models

import (
	"encoding/json"
	"time"
)

// QueryResult is the answer to one question together with the sources it drew on.
type QueryResult struct {
	ID      string         `json:"id"`
	Query   string         `json:"query"`
	Answer  string         `json:"answer"`
	Sources []*ScoredChunk `json:"sources"`
	Model   string         `json:"model"`
	Took    time.Duration  `json:"-"`
}

// TookMillis is the query latency in milliseconds.
func (r *QueryResult) TookMillis() int64 {
	return r.Took.Milliseconds()
}

// MarshalJSON reports Took as whole milliseconds under "took_ms".
func (r *QueryResult) MarshalJSON() ([]byte, error) {
	type alias QueryResult
	return json.Marshal(&struct {
		*alias
		TookMS int64 `json:"took_ms"`
	}{alias: (*alias)(r), TookMS: r.TookMillis()})
}
