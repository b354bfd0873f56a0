package signer

import (
	"bytes"
	"crypto"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/sirupsen/logrus"
)

// GPGSigner implements Signer interface using an OpenPGP private key
type GPGSigner struct {
	entity *openpgp.Entity
}

// NewGPGSigner creates a new GPG signer from a private key file, armored or
// binary. The passphrase unlocks the primary key and its subkeys.
func NewGPGSigner(keyPath, passphrase string) (*GPGSigner, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer keyFile.Close()

	entity, err := readEntity(keyFile)
	if err != nil {
		return nil, err
	}

	if err := unlock(entity, passphrase); err != nil {
		return nil, err
	}

	return NewGPGSignerFromEntity(entity), nil
}

// NewGPGSignerFromEntity wraps an already unlocked entity
func NewGPGSignerFromEntity(entity *openpgp.Entity) *GPGSigner {
	return &GPGSigner{entity: entity}
}

func readEntity(r io.ReadSeeker) (*openpgp.Entity, error) {
	entityList, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		entityList, err = openpgp.ReadKeyRing(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in key file")
	}
	if entityList[0].PrivateKey == nil {
		return nil, fmt.Errorf("key file holds no private key")
	}
	return entityList[0], nil
}

func unlock(entity *openpgp.Entity, passphrase string) error {
	if entity.PrivateKey.Encrypted {
		if passphrase == "" {
			return fmt.Errorf("key is encrypted but no passphrase provided")
		}
		if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}

	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
			if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return fmt.Errorf("failed to decrypt subkey: %w", err)
			}
		}
	}
	return nil
}

// KeyID returns the long key ID of the primary key
func (s *GPGSigner) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

// SignDetached creates an armored detached signature, the form twine uploads as .asc
func (s *GPGSigner) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), &packet.Config{
		DefaultHash: crypto.SHA512,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create detached signature: %w", err)
	}

	return buf.Bytes(), nil
}

// GetPublicKey returns the public key in armored format
func (s *GPGSigner) GetPublicKey() ([]byte, error) {
	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}

	if err := s.entity.Serialize(w); err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// VerifyDetached checks an armored detached signature against a key ring,
// armored or binary. Private key files are accepted since they carry the
// public half.
func VerifyDetached(keyRing, data, signature []byte) error {
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(keyRing))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(keyRing))
		if err != nil {
			return fmt.Errorf("failed to read public key: %w", err)
		}
	}

	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		return fmt.Errorf("signature check failed: %w", err)
	}
	logrus.Debugf("Good signature from key %s", signer.PrimaryKey.KeyIdString())
	return nil
}
