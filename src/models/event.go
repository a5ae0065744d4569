package models

// MEvent is the envelope distributed to every push subscriber. It is built
// once per backend action and never mutated after construction.
type MEvent struct {
	Time    string      `json:"time"`
	Source  string      `json:"source"`
	Payload interface{} `json:"payload"`
	Request interface{} `json:"request,omitempty"`
}

// MStreamFrame is one frame of a market-data streaming session. Exactly one
// of Data / Error is set.
type MStreamFrame struct {
	Conid string      `json:"conid"`
	Time  string      `json:"time"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}
