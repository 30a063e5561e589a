package model

// Element is a copy of one list element handed out of the registry.
type Element struct {
	List    string
	Payload []byte

	// Token re-selects the element with seek.
	Token string
	// Nonce is unique per allocation and doubles as the memcached CAS value.
	Nonce uint64
}

// ListInfo describes a registered list.
type ListInfo struct {
	Name        string
	ElementSize int
	Count       int
}
