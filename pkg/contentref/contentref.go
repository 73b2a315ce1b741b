// Package contentref recognizes content pointers that name IPFS objects so
// responses can carry a retrievable gateway URL. Pointers stay opaque to the
// registry; recognition only adds a convenience link.
package contentref

import (
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
)

// Kind classifies a content pointer.
type Kind int

const (
	KindOpaque Kind = iota
	KindCIDv0
	KindCIDv1
)

func (k Kind) String() string {
	switch k {
	case KindCIDv0:
		return "cidv0"
	case KindCIDv1:
		return "cidv1"
	default:
		return "opaque"
	}
}

const (
	cidV0Len       = 46
	sha256Code     = 0x12
	sha256DigestSz = 32
)

// Classify inspects pointer without any network access.
func Classify(pointer string) Kind {
	switch {
	case isCIDv0(pointer):
		return KindCIDv0
	case isCIDv1(pointer):
		return KindCIDv1
	default:
		return KindOpaque
	}
}

// isCIDv0 checks for a base58btc sha2-256 multihash ("Qm...").
func isCIDv0(s string) bool {
	if len(s) != cidV0Len || !strings.HasPrefix(s, "Qm") {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 2+sha256DigestSz && raw[0] == sha256Code && raw[1] == sha256DigestSz
}

// isCIDv1 accepts any multibase-encoded CIDv1 whose codec and multihash
// decode cleanly.
func isCIDv1(s string) bool {
	if strings.HasPrefix(s, "Qm") {
		return false
	}
	c, err := cid.Decode(s)
	return err == nil && c.Version() == 1
}

// Resolver builds gateway URLs for recognized pointers.
type Resolver struct {
	gateway string
}

// NewResolver uses gatewayBase, e.g. "https://gateway.pinata.cloud". An empty
// base disables URL generation.
func NewResolver(gatewayBase string) *Resolver {
	return &Resolver{gateway: strings.TrimRight(gatewayBase, "/")}
}

// GatewayURL returns the retrieval URL for pointer, or "" when the pointer is
// opaque or no gateway is configured.
func (r *Resolver) GatewayURL(pointer string) string {
	if r == nil || r.gateway == "" || Classify(pointer) == KindOpaque {
		return ""
	}
	return r.gateway + "/ipfs/" + pointer
}
