package binary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // maintained fork of golang.org/x/crypto/openpgp
)

// loadKeyrings reads every regular file in dir as a GPG keyring (armored or
// binary) and merges the entities. The upstream projects we fetch are third
// parties, so their public keys are supplied by the operator rather than
// embedded in this binary.
func loadKeyrings(dir string) (openpgp.EntityList, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read keyring dir: %w", err)
	}

	var keyring openpgp.EntityList
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		entities, err := readKeyringFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read keyring %s: %w", entry.Name(), err)
		}
		keyring = append(keyring, entities...)
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("no keys found in %s", dir)
	}
	return keyring, nil
}

// readKeyringFile parses one keyring file, trying the armored form first.
func readKeyringFile(path string) (openpgp.EntityList, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entities, err := openpgp.ReadArmoredKeyRing(file)
	if err != nil {
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			return nil, serr
		}
		entities, err = openpgp.ReadKeyRing(file)
		if err != nil {
			return nil, err
		}
	}
	return entities, nil
}
