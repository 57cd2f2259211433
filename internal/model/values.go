package model

// Value is one cell of the value store as served over HTTP.
//
// ID is the store key: the metric id, followed by ":" and the location when
// the value is location specific.
//
// Example:
//
//	model.Value{ID: "room:temp:kitchen", Value: 21.5}
type Value struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// IngestResponse reports how many metric data records an ingested payload
// produced.
//
// Values is zero when no route matches the subject or no handler of a
// matching route found anything in the payload.
type IngestResponse struct {
	Subject string `json:"subject"`
	Values  int    `json:"values"`
}

// Report is the JSON object an agent posts each report interval: one member
// per sampled gauge, keyed by name.
//
// Example:
//
//	model.Report{"Alloc": 123456, "CPUutilization1": 3.5}
type Report map[string]float64
