package lnscan

import (
	"fmt"
	"strings"
)

// isNodeConnection reports whether text looks like pubkey@host:port. The
// check is purely structural, neither the key nor the port are validated.
func isNodeConnection(text string) bool {
	if !strings.Contains(text, "@") {
		return false
	}

	parts := strings.Split(text, ":")

	return len(parts) == 2 && strings.Contains(parts[0], "@")
}

// decodeNodeID wraps a node connection string. Onion endpoints are rejected
// since the wallet can not reach them.
func decodeNodeID(text string) (*NodeID, error) {
	if strings.Contains(text, "onion") {
		log.Warnf("Rejecting onion node endpoint %s", text)

		return nil, fmt.Errorf("%w: tor node endpoints are not "+
			"supported", ErrUnsupportedType)
	}

	return &NodeID{
		URL:     text,
		Network: NetworkBitcoin,
	}, nil
}
