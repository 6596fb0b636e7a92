// Package pairing establishes trust between two devices: single-use
// invitations with random challenges, a framed TCP handshake, X25519 key
// exchange and a signed success token.
package pairing

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vaultlink/vaultlink/internal/common"
)

// Handshake framing: a literal tag line identifying the message type, a
// content-length header line, a blank line, then the JSON body. The reply is
// a single plain-text status line.
const (
	frameTag = "VAULTLINK-PAIR"

	replySuccess = "PAIR_SUCCESS"
	replyFailed  = "PAIR_FAILED"
	replyError   = "PAIR_ERROR"

	// maxFrameBody caps the handshake body; anything larger is malformed.
	maxFrameBody = 64 * 1024
)

// PairRequest is the JSON body the accepting device sends to the inviting
// device's handshake listener.
type PairRequest struct {
	DeviceID       string            `json:"deviceId"`
	DeviceName     string            `json:"deviceName"`
	PublicKey      []byte            `json:"publicKey"`
	ChallengeProof string            `json:"challengeProof"`
	Capabilities   map[string]string `json:"capabilities,omitempty"`
}

// writeFrame writes the tag line, content-length header, blank line and body.
func writeFrame(w io.Writer, body []byte) error {
	if _, err := fmt.Fprintf(w, "%s\nContent-Length: %d\n\n", frameTag, len(body)); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// readFrame validates the tag and header lines and returns the body.
func readFrame(r *bufio.Reader) ([]byte, error) {
	tag, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: reading tag line: %v", common.ErrPairing, err)
	}
	if strings.TrimRight(tag, "\r\n") != frameTag {
		return nil, fmt.Errorf("%w: unexpected tag line %q", common.ErrPairing, strings.TrimSpace(tag))
	}

	header, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: reading length header: %v", common.ErrPairing, err)
	}
	header = strings.TrimRight(header, "\r\n")
	value, ok := strings.CutPrefix(header, "Content-Length: ")
	if !ok {
		return nil, fmt.Errorf("%w: malformed length header %q", common.ErrPairing, header)
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > maxFrameBody {
		return nil, fmt.Errorf("%w: invalid content length %q", common.ErrPairing, value)
	}

	blank, err := r.ReadString('\n')
	if err != nil || strings.TrimRight(blank, "\r\n") != "" {
		return nil, fmt.Errorf("%w: missing blank separator line", common.ErrPairing)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", common.ErrPairing, err)
	}
	return body, nil
}

// writeReply writes the plain-text status line.
func writeReply(w io.Writer, line string) error {
	_, err := fmt.Fprintf(w, "%s\n", line)
	return err
}

// parseReply interprets the server's status line. On success it returns the
// token carried after the PAIR_SUCCESS tag; otherwise the error wraps
// ErrPairing with the server's reason.
func parseReply(line string) (token string, err error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(line, replySuccess):
		return strings.TrimSpace(strings.TrimPrefix(line, replySuccess)), nil
	case strings.HasPrefix(line, replyFailed+":"):
		return "", fmt.Errorf("%w: rejected: %s", common.ErrPairing, strings.TrimSpace(strings.TrimPrefix(line, replyFailed+":")))
	case strings.HasPrefix(line, replyError+":"):
		return "", fmt.Errorf("%w: server error: %s", common.ErrPairing, strings.TrimSpace(strings.TrimPrefix(line, replyError+":")))
	default:
		return "", fmt.Errorf("%w: unexpected reply %q", common.ErrPairing, line)
	}
}
