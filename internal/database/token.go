package database

import (
	"crypto/rand"
	"math/big"
)

// Lowercase letters and digits without the easily confused 'l' and '1'.
const tokenChars = "abcdefghijkmnopqrstuvwxyz023456789"

const maxTokenAttempts = 10

func generateToken(length int) (string, error) {
	token := make([]byte, length)
	for i := range token {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tokenChars))))
		if err != nil {
			return "", err
		}
		token[i] = tokenChars[n.Int64()]
	}
	return string(token), nil
}
