// Package device derives a stable description of the calling device from its
// user agent. The push-approval flow sends this description with the initiate
// request so the approval prompt can name the browser asking for approval.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// Description identifies the device initiating a ceremony.
type Description struct {
	ID          string
	DisplayName string
	Fingerprint string
}

// NewID generates a fresh device identifier.
func NewID() string {
	return uuid.New().String()
}

// Describe parses the user agent into a human-readable display name and a
// coarse fingerprint. The fingerprint deliberately excludes the IP address
// (too volatile) and the full version (churns every release).
func Describe(id, userAgentString string) Description {
	if id == "" {
		id = NewID()
	}
	if userAgentString == "" {
		return Description{ID: id, DisplayName: "Unknown device"}
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()
	osInfo := ua.OSInfo()

	majorVersion := "unknown"
	if version != "" {
		if head, _, _ := strings.Cut(version, "."); head != "" {
			majorVersion = head
		}
	}

	display := fmt.Sprintf("%s on %s", browser, osInfo.Name)

	fingerprint := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s", browser, majorVersion, osInfo.Name))

	return Description{
		ID:          id,
		DisplayName: display,
		Fingerprint: hex.EncodeToString(fingerprint[:8]),
	}
}
