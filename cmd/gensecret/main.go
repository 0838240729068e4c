// gensecret prints a random key suitable for SECRET_KEY
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const defaultKeyBytesLen = 32

func main() {
	size := pflag.IntP("bytes", "b", defaultKeyBytesLen, "Key length in bytes")
	envLine := pflag.Bool("env", false, "Print as a .env line")
	pflag.Parse()

	if *size <= 0 {
		fmt.Fprintln(os.Stderr, "key length must be positive")
		os.Exit(2)
	}

	b := make([]byte, *size)
	if _, err := rand.Read(b); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}

	key := hex.EncodeToString(b)
	if *envLine {
		fmt.Printf("SECRET_KEY=%s\n", key)
		return
	}
	fmt.Println(key)
}
