package auth

import "tokenswap/internal/model"

// Capability proves that its holder acts as an identity. Values can only be
// minted by Issue; the zero Capability carries no identity.
type Capability struct {
	identity model.AccountID
	issued   bool
}

// Issue mints a capability for identity. Callers are the host's signature
// verification step and trusted operator tooling.
func Issue(identity model.AccountID) Capability {
	if identity.IsZero() {
		return Capability{}
	}
	return Capability{identity: identity, issued: true}
}

func (c Capability) Identity() model.AccountID {
	return c.identity
}

func (c Capability) IsEmpty() bool {
	return !c.issued
}

func (c Capability) String() string {
	if c.IsEmpty() {
		return "<none>"
	}
	return c.identity.String()
}
