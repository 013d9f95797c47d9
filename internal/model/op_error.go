package model

// OpError records a rejected operation line.
type OpError struct {
	Seq    uint64 `json:"seq"`
	Op     string `json:"op"`
	Caller string `json:"caller"`
	Error  string `json:"error"`
}
