package config

import (
	"fmt"

	"github.com/sandpiper-dns/adns/tsig"
)

// TsigKeyConf is one configured TSIG key, spec.md §6: "A set of TSIG keys:
// name, algorithm, shared secret." The map key in Config.TsigKeys is the
// key's name; Algorithm defaults to hmac-sha256 when empty.
type TsigKeyConf struct {
	Algorithm string `mapstructure:"algorithm"`
	Secret    string `mapstructure:"secret" validate:"required"`
}

// BuildKeyStore turns the configured key map into a tsig.KeyStore.
func BuildKeyStore(keys map[string]TsigKeyConf) (*tsig.KeyStore, error) {
	built := make([]tsig.Key, 0, len(keys))
	for name, kc := range keys {
		algo := kc.Algorithm
		if algo == "" {
			algo = "hmac-sha256"
		}
		k, err := tsig.NewKey(name, algo, kc.Secret)
		if err != nil {
			return nil, fmt.Errorf("config: tsig key %q: %w", name, err)
		}
		built = append(built, k)
	}
	return tsig.NewKeyStore(built), nil
}
