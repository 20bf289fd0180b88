package credentials

import (
	"github.com/spigell/resume-optimizer/internal/api"
)

// Match returns the id of the first credential in keys whose provider is the
// one required by the model. Unknown models never match.
func Match(m Model, keys []*api.Credential) (string, bool) {
	provider, ok := ProviderFor(m)
	if !ok {
		return "", false
	}

	for _, key := range keys {
		if key != nil && Provider(key.Provider) == provider {
			return key.ID, true
		}
	}

	return "", false
}

// Compatible filters keys down to the ones usable with the model, keeping
// their order.
func Compatible(m Model, keys []*api.Credential) []*api.Credential {
	provider, ok := ProviderFor(m)
	if !ok {
		return nil
	}

	var out []*api.Credential
	for _, key := range keys {
		if key != nil && Provider(key.Provider) == provider {
			out = append(out, key)
		}
	}

	return out
}

// Usable reports whether the credential with the given id is present in keys
// and compatible with the model.
func Usable(m Model, id string, keys []*api.Credential) bool {
	if id == "" {
		return false
	}

	for _, key := range Compatible(m, keys) {
		if key.ID == id {
			return true
		}
	}

	return false
}
