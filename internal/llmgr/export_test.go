package llmgr

// SetNonceForTest overrides the nonce source and returns a restore function.
func SetNonceForTest(f func() uint64) func() {
	prev := newNonce
	newNonce = f
	return func() {
		newNonce = prev
	}
}
