package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const chromeOnLinux = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestDescribe(t *testing.T) {
	desc := Describe("device-1", chromeOnLinux)

	assert.Equal(t, "device-1", desc.ID)
	assert.Contains(t, desc.DisplayName, "Chrome")
	assert.Contains(t, desc.DisplayName, " on ")
	assert.NotEmpty(t, desc.Fingerprint)
}

func TestDescribeGeneratesID(t *testing.T) {
	desc := Describe("", chromeOnLinux)
	assert.NotEmpty(t, desc.ID)
}

func TestDescribeEmptyUserAgent(t *testing.T) {
	desc := Describe("device-1", "")
	assert.Equal(t, "Unknown device", desc.DisplayName)
	assert.Empty(t, desc.Fingerprint)
}

func TestFingerprintIgnoresPatchVersion(t *testing.T) {
	a := Describe("d", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	b := Describe("d", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.224 Safari/537.36")
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}
