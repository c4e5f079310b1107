package domain

// Identity is the unique string naming a peer. It is the key for every
// session and call lookup.
type Identity string

func (id Identity) String() string {
	return string(id)
}

// PairKey derives an order-independent key for two identities so either
// party's request resolves to the same call record.
func PairKey(a, b Identity) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}
