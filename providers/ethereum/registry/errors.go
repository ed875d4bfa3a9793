package registry

import (
	"strings"

	"dataset-registry/core/apperr"
)

// The contract reports failures as revert-reason strings. This is the single
// place that text is examined; everything downstream sees tagged kinds.
var revertKinds = []struct {
	needle string
	kind   apperr.Kind
	msg    string
}{
	{"caller is not the admin", apperr.Permission, "admin-only contract call"},
	{"only admin", apperr.Permission, "admin-only contract call"},
	{"bounty already distributed", apperr.AlreadyDistributed, "bounty already distributed"},
	{"already distributed", apperr.AlreadyDistributed, "bounty already distributed"},
	{"no contributors", apperr.Validation, "bounty has no contributors"},
	{"nonexistent token", apperr.NotFound, "token does not exist"},
	{"invalid token id", apperr.NotFound, "token does not exist"},
	{"nonexistent bounty", apperr.NotFound, "bounty does not exist"},
}

// classifyRevert turns a contract revert into a tagged error. Unrecognized
// reverts and transport failures map to Upstream.
func classifyRevert(op string, err error) error {
	reason := strings.ToLower(err.Error())
	for _, rk := range revertKinds {
		if strings.Contains(reason, rk.needle) {
			return apperr.Wrap(rk.kind, rk.msg, err)
		}
	}
	return apperr.Wrap(apperr.Upstream, op+" failed", err)
}
