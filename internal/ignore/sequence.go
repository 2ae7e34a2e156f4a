package ignore

// The wire protocol only carries the low 16 bits of a sequence number.
// These helpers widen them against a known 64-bit reference so the tracker
// can rely on strict monotonicity across wrap-around.

// Issued widens s, the sequence of a request issued after the request
// numbered last. The result is the smallest value >= last whose low 16 bits
// equal s.
func Issued(last uint64, s uint16) uint64 {
	return last + uint64(s-uint16(last))
}

// Received widens s, the sequence carried by an event or error, given that
// last is the most recent request issued. Replies never refer to requests
// that have not been sent, so the result is the largest value <= last whose
// low 16 bits equal s.
func Received(last uint64, s uint16) uint64 {
	back := uint64(uint16(last) - s)
	if back > last {
		return uint64(s)
	}
	return last - back
}
