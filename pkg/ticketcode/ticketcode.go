// Package ticketcode generates human-presentable ticket numbers and
// the QR code URLs encoding them. Pure functions, no storage access:
// uniqueness is enforced by the database constraint, the caller retries
// the whole purchase transaction on a collision.
package ticketcode

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const randomSuffixLen = 6

// Generate returns a ticket number of the form
// <prefix>-<base36 millis>-<random base36 suffix>, e.g. ASTRA-MF3K2V1X-A7Q9ZC.
// Collisions are astronomically unlikely but not impossible, so callers
// must not rely on this alone.
func Generate(prefix string) string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return fmt.Sprintf("%s-%s-%s", prefix, ts, randomSuffix(randomSuffixLen))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform RNG is broken;
		// fall back to a time-derived suffix rather than panic
		ts := strconv.FormatInt(time.Now().UnixNano(), 36)
		return strings.ToUpper(ts[len(ts)-n:])
	}
	for i := range buf {
		buf[i] = base36Alphabet[int(buf[i])%len(base36Alphabet)]
	}
	return string(buf)
}

// QRCodeURL собирает ссылку на изображение QR-кода с публичным URL билета
func QRCodeURL(qrBaseURL, ticketBaseURL, ticketNumber string) string {
	data := ticketBaseURL + ticketNumber
	return fmt.Sprintf("%s?size=200x200&data=%s", qrBaseURL, url.QueryEscape(data))
}
