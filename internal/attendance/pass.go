package attendance

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"
)

// Pass is what a student's attendance QR code encodes. Timestamps are unix
// milliseconds. A pass is a display aid, not a verifiable credential.
type Pass struct {
	UserID    string `json:"userId"`
	ClassID   string `json:"classId"`
	Timestamp int64  `json:"timestamp"`
	Expiry    int64  `json:"expiry"`
}

// IssuedAt returns the time the pass was generated.
func (p Pass) IssuedAt() time.Time { return time.UnixMilli(p.Timestamp) }

// ExpiresAt returns the time after which a scan is rejected.
func (p Pass) ExpiresAt() time.Time { return time.UnixMilli(p.Expiry) }

// Expired reports whether the pass is no longer scannable at now.
func (p Pass) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt())
}

// Encode returns the JSON payload placed in the QR code.
func (p Pass) Encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodePass parses a scanned payload.
func DecodePass(payload string) (Pass, error) {
	var p Pass
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Pass{}, fmt.Errorf("%w: %v", ErrMalformedPass, err)
	}
	if p.UserID == "" || p.ClassID == "" || p.Expiry <= p.Timestamp {
		return Pass{}, ErrMalformedPass
	}
	return p, nil
}

// RenderPNG draws an encoded pass payload as a size x size QR code image.
func RenderPNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, ErrMalformedPass
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
