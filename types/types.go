package types

// Alternative is one ranked transcript candidate. Backends order them best first.
type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is a transcript event emitted by a recognition backend.
type Result struct {
	Alternatives []Alternative
	IsFinal      bool
}

// Top returns the highest-ranked alternative.
func (r Result) Top() (Alternative, bool) {
	if len(r.Alternatives) == 0 {
		return Alternative{}, false
	}
	return r.Alternatives[0], true
}

// Response groups the results of one backend message.
type Response struct {
	Results []Result
}
