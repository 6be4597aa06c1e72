package smpc

import (
	"github.com/ontanj/smpc/paillier"
)

// Setup generates a fresh key pair of setting.KeyBits bits and returns the
// two parties bound to it, together with the secret key for local decryption
// of final results.
func Setup(setting Setting) (*Helper, *DecryptionParty, *paillier.SecretKey, error) {
	pk, sk, err := paillier.GenerateKey(setting.keyBits())
	if err != nil {
		return nil, nil, nil, wrap("Setup", err)
	}
	helper, err := NewHelper(pk, setting)
	if err != nil {
		return nil, nil, nil, err
	}
	oracle, err := NewDecryptionParty(sk, setting)
	if err != nil {
		return nil, nil, nil, err
	}
	return helper, oracle, sk, nil
}
