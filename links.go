package lnscan

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// bitkitScheme prefixes deep links into the wallet. It is stripped
	// once before dispatching.
	bitkitScheme = "bitkit://"

	ticketPrefix = "ticket-"

	treasureHuntShortLink = "cutt.ly/VwQFzhJJ"
	treasureHuntDrone     = "bitkit.to/drone"
	treasureHuntPath      = "bitkit.to/treasure-hunt"
	treasureHuntChestLink = "bitkit:chest"

	// droneChestID is the chest behind both the short link and the drone
	// campaign link.
	droneChestID = "2gZxrqhc"
)

func isOrangeTicket(text string) bool {
	return strings.HasPrefix(text, ticketPrefix)
}

func decodeOrangeTicket(text string) (*OrangeTicket, error) {
	_, id, _ := strings.Cut(text, "-")
	if id == "" {
		return nil, fmt.Errorf("%w: ticket without id", ErrInvalidFormat)
	}

	return &OrangeTicket{TicketID: id}, nil
}

func isDroneLink(text string) bool {
	return strings.Contains(text, treasureHuntShortLink) ||
		strings.Contains(text, treasureHuntDrone)
}

func isTreasureHuntURL(text string) bool {
	return strings.Contains(text, treasureHuntPath)
}

// chestFromURL returns the chest query parameter of a treasure hunt URL. It
// reports false if text is not an absolute URL or has no chest parameter.
func chestFromURL(text string) (string, bool) {
	u, err := url.Parse(text)
	if err != nil || u.Scheme == "" {
		return "", false
	}

	chests, ok := u.Query()["chest"]
	if !ok || len(chests) == 0 {
		return "", false
	}

	return chests[0], true
}

func isChestLink(text string) bool {
	return strings.Contains(text, treasureHuntChestLink)
}

// chestFromLink returns the segment following the first hyphen of a chest
// deep link.
func chestFromLink(text string) (string, bool) {
	segments := strings.Split(text, "-")
	if len(segments) < 2 {
		return "", false
	}

	return segments[1], true
}
