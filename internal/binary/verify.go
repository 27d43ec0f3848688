package binary

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // maintained fork of golang.org/x/crypto/openpgp
	"github.com/sirupsen/logrus"
)

// Verifier checks detached GPG signatures over downloaded archives.
// Signature verification is opt-in: it runs only when a keyring directory
// is configured and the release actually published a .asc asset. The
// mandatory integrity gate is the SHA-256 digest in the Downloader.
type Verifier struct {
	keyringDir string
	logger     *logrus.Entry
}

// NewVerifier creates a verifier reading public keys from keyringDir.
// An empty keyringDir disables signature verification.
func NewVerifier(keyringDir string) *Verifier {
	return &Verifier{
		keyringDir: keyringDir,
		logger:     logrus.WithField("component", "verifier"),
	}
}

// Enabled reports whether a keyring directory was configured.
func (v *Verifier) Enabled() bool {
	return v.keyringDir != ""
}

// VerifySignature verifies the detached signature at signaturePath over the
// archive at archivePath. Any key in the keyring directory may sign.
func (v *Verifier) VerifySignature(archivePath, signaturePath string) error {
	keyring, err := loadKeyrings(v.keyringDir)
	if err != nil {
		return fmt.Errorf("load keyrings: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	// Try armored first, then binary.
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, archiveFile, sigFile, nil)
	if err != nil {
		if _, serr := archiveFile.Seek(0, io.SeekStart); serr != nil {
			return fmt.Errorf("rewind archive: %w", serr)
		}
		if _, serr := sigFile.Seek(0, io.SeekStart); serr != nil {
			return fmt.Errorf("rewind signature: %w", serr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, archiveFile, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	v.logger.WithField("archive", archivePath).Debug("GPG signature verified")
	return nil
}
