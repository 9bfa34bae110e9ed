package jwtx

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"sync"

	"github.com/aussiebroadwan/gamevault/pkg/cryptox"
)

const (
	defaultNumKeys = 2
	maxNumKeys     = 10
)

// KeyManager owns the broker's custom token signing keys. Keys are generated
// at start-up and live only in memory: a custom token is exchanged within
// seconds of minting, so nothing needs to survive a restart.
type KeyManager struct {
	KeySet   *KeySet
	Verifier Verifier

	mu      sync.RWMutex
	signers []Signer
}

// KeyManagerOptions configures NewKeyManager.
type KeyManagerOptions struct {
	Issuer   string
	Audience []string

	// NumKeys is clamped to [1, 10]. Zero means 2.
	NumKeys int
}

// NewKeyManager generates opts.NumKeys Ed25519 signers and a verifier bound
// to the issuer and audience.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: issuer is required")
	}

	n := opts.NumKeys
	if n <= 0 {
		n = defaultNumKeys
	}
	n = min(n, maxNumKeys)

	km := &KeyManager{KeySet: NewKeySet()}
	for i := range n {
		signer, err := generateSigner()
		if err != nil {
			return nil, fmt.Errorf("jwtx: signer %d: %w", i+1, err)
		}
		if err := km.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	km.Verifier = NewVerifierEdDSA(km.KeySet, VerifyOptions{
		Issuer:   opts.Issuer,
		Audience: opts.Audience,
	})
	return km, nil
}

func generateSigner() (Signer, error) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, err
	}

	pemKey, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}
	return NewSignerEdDSA(hex.EncodeToString(raw[:]), pemKey)
}

// AddSigner makes s available for signing and publishes its public key.
func (km *KeyManager) AddSigner(s Signer) error {
	if s == nil {
		return errors.New("jwtx: nil signer")
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if err := km.KeySet.AddJWK(s.PublicJWK()); err != nil {
		return fmt.Errorf("jwtx: publish signer: %w", err)
	}
	km.signers = append(km.signers, s)
	return nil
}

// Sign signs claims with a randomly picked key.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if len(km.signers) == 0 {
		return "", errors.New("jwtx: no signing keys")
	}
	return km.signers[mathrand.IntN(len(km.signers))].Sign(claims)
}

func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

func (km *KeyManager) IsReady() bool { return km.NumSigners() > 0 && km.KeySet.IsReady() }
