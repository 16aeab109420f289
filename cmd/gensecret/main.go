package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const SecretKeyBytesLen = 32

// Print fresh independent token secrets in .env format
func main() {
	if err := write(os.Stdout, rand.Reader); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}
}

func write(w io.Writer, random io.Reader) error {
	for _, key := range []string{"ACCESS_TOKEN_SECRET", "REFRESH_TOKEN_SECRET"} {
		secret, err := newSecret(random)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, secret); err != nil {
			return err
		}
	}
	return nil
}

func newSecret(random io.Reader) (string, error) {
	b := make([]byte, SecretKeyBytesLen)

	if _, err := io.ReadFull(random, b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
