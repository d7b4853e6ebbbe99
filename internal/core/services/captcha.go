package services

import (
	"crypto/rand"
	"math/big"
)

const (
	captchaAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	captchaLength   = 6
)

// newCaptchaText draws captchaLength characters from captchaAlphabet. The
// alphabet leaves out I, O, 0 and 1.
func newCaptchaText() (string, error) {
	max := big.NewInt(int64(len(captchaAlphabet)))
	b := make([]byte, captchaLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = captchaAlphabet[n.Int64()]
	}
	return string(b), nil
}
