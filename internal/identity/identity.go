// Package identity derives stable student identifiers and hashes device and
// barcode secrets before they reach storage.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Device classifications stored alongside a binding.
const (
	DeviceMobile   = "mobile"
	DeviceComputer = "computer"
	DeviceUnknown  = "unknown"
)

var (
	mobileKeywords = []string{
		"mobile", "android", "iphone", "ipad", "ipod", "blackberry",
		"windows phone", "opera mini", "opera mobi", "webos", "palm",
		"symbian", "nokia", "samsung", "lg-", "htc", "mot-", "huawei",
		"tablet", "playbook", "silk",
	}
	desktopKeywords = []string{"windows nt", "macintosh", "mac os x", "linux x86", "linux i686", "linux amd64"}
)

// StudentID returns the stable identifier for a (name, surname, group) triple.
// Name and surname are case-insensitive, the group is normalised to upper case.
func StudentID(name, surname, group string) string {
	key := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(name)),
		strings.ToLower(strings.TrimSpace(surname)),
		strings.ToUpper(strings.TrimSpace(group)),
	)
	return sha256Hex(key)
}

// HashSecret hashes a raw device secret for storage and lookup.
func HashSecret(secret string) string {
	return sha256Hex(secret)
}

// HashBarcode hashes a student card barcode.
func HashBarcode(barcode string) string {
	return sha256Hex(barcode)
}

// NewSecret returns a URL-safe random token built from n random bytes.
func NewSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ClassifyDevice guesses the device family from a User-Agent header. The
// result is informational only.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return DeviceUnknown
	}

	for _, keyword := range mobileKeywords {
		if strings.Contains(ua, keyword) {
			return DeviceMobile
		}
	}

	for _, keyword := range desktopKeywords {
		if strings.Contains(ua, keyword) {
			return DeviceComputer
		}
	}

	return DeviceUnknown
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
