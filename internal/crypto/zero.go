package crypto

// Zero overwrites a byte slice in memory with zeros. Every password or
// key buffer goes through here on its way out, error paths included.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
