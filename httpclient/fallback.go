package httpclient

// Fallback is the body substituted by JSONOr when encoding fails
type Fallback struct {
	body []byte
}

var (
	// FallbackEmptyObject substitutes {}
	FallbackEmptyObject = Fallback{body: []byte("{}")}
	// FallbackEmptyArray substitutes []
	FallbackEmptyArray = Fallback{body: []byte("[]")}
	// FallbackNull substitutes null
	FallbackNull = Fallback{body: []byte("null")}
)

// FallbackBytes substitutes b verbatim
func FallbackBytes(b []byte) Fallback {
	return Fallback{body: append([]byte(nil), b...)}
}

// Bytes returns a copy of the substituted body
// The zero Fallback behaves as FallbackEmptyObject
func (f Fallback) Bytes() []byte {
	if f.body == nil {
		return []byte("{}")
	}
	return append([]byte(nil), f.body...)
}
