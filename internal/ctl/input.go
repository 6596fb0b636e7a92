package ctl

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetPassword prompts for a password without echoing it.
func GetPassword(prompt string) ([]byte, error) {
	fmt.Println(prompt)
	return readPassword(int(os.Stdin.Fd()))
}
