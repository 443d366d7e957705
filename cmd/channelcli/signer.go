package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aeternity/aepp-statechannels-go/signer"
)

// stdinSigner is an operator-facing signer.Signer: every sign request
// is printed to stdout and the operator types back either a signed
// transaction (as an already-signed base64/hex blob, passed through
// verbatim), an integer abort code, or a blank line to reject. It
// exists purely so channelcli can exercise the action surface without
// embedding a real wallet.
type stdinSigner struct {
	in *bufio.Scanner
}

func newStdinSigner() *stdinSigner {
	return &stdinSigner{in: bufio.NewScanner(os.Stdin)}
}

func (s *stdinSigner) Sign(tx []byte, meta map[string]interface{}) (signer.RawResponse, error) {
	return s.prompt("sign", tx, meta)
}

func (s *stdinSigner) SignTagged(tag signer.Tag, tx []byte, meta map[string]interface{}) (signer.RawResponse, error) {
	return s.prompt(string(tag), tx, meta)
}

func (s *stdinSigner) prompt(label string, tx []byte, meta map[string]interface{}) (signer.RawResponse, error) {
	fmt.Printf("[%s] sign request: tx=%s meta=%v\n", label, string(tx), meta)
	fmt.Print("  enter signed tx, an integer abort code, or blank to reject: ")

	if !s.in.Scan() {
		return nil, nil
	}
	line := strings.TrimSpace(s.in.Text())
	if line == "" {
		return nil, nil
	}
	if code, err := strconv.Atoi(line); err == nil {
		return code, nil
	}
	return line, nil
}
