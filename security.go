package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// secureWipe overwrites credential bytes so they do not linger in memory.
func secureWipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// askPassword reads a password from the terminal without echoing it. Used
// when a script configures a user but never sets a password, so credentials
// can stay out of script files.
func askPassword() []byte {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		logger.Warnw("cannot read password", "err", err)
		return nil
	}
	return password
}
