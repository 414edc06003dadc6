// Package keyring inspects the OpenPGP public keys package servers publish
// next to their package lists.
package keyring

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/hashicorp/go-multierror"
)

// Key describes one public key found in a keyring
type Key struct {
	Fingerprint string
	KeyID       string
	Identity    string
}

// Inspect parses every armored keyring and returns the keys it holds.
// Keyrings that fail to parse are reported in the returned error while the
// keys from the others are still returned.
func Inspect(armored []string) ([]Key, error) {
	var keys []Key
	var errs *multierror.Error
	seen := make(map[string]bool)

	for i, block := range armored {
		entities, err := readKeyRing(block)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("keyring %d: %w", i, err))
			continue
		}

		for _, entity := range entities {
			key := describe(entity)
			if seen[key.Fingerprint] {
				continue
			}
			seen[key.Fingerprint] = true
			keys = append(keys, key)
		}
	}

	return keys, errs.ErrorOrNil()
}

// Fingerprints returns the fingerprints of the given keys
func Fingerprints(keys []Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Fingerprint)
	}
	return out
}

func readKeyRing(block string) (openpgp.EntityList, error) {
	data := []byte(strings.TrimSpace(block))

	// Try to parse as armored key first
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		// Try as binary key
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in keyring")
	}
	return entities, nil
}

func describe(entity *openpgp.Entity) Key {
	key := Key{
		Fingerprint: strings.ToUpper(fmt.Sprintf("%x", entity.PrimaryKey.Fingerprint)),
		KeyID:       entity.PrimaryKey.KeyIdString(),
	}
	if ident := entity.PrimaryIdentity(); ident != nil {
		key.Identity = ident.Name
	}
	return key
}
