package testutil

import (
	id "recordshare/pkg/domain"
	"recordshare/pkg/principal"
)

// Caller returns a verified principal for address, as the auth middleware
// would attach it. It panics on an invalid address, which is a bug in the test.
func Caller(address string) principal.Principal {
	return principal.Verified(id.MustParseAddress(address), "test-token")
}
