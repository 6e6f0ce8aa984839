package service

import "crypto/rand"

// DisplayIDLength is the size of a thread's short label.
const DisplayIDLength = 5

const displayIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewDisplayID returns a random alphanumeric label. Labels are decorative and
// not checked for uniqueness; the numeric post id is the real identity.
func NewDisplayID() string {
	out := make([]byte, 0, DisplayIDLength)
	buf := make([]byte, DisplayIDLength*2)
	// 248 is the largest multiple of 62 below 256; rejecting above it keeps the draw uniform.
	for len(out) < DisplayIDLength {
		if _, err := rand.Read(buf); err != nil {
			panic("display id: " + err.Error())
		}
		for _, b := range buf {
			if b >= 248 {
				continue
			}
			out = append(out, displayIDAlphabet[int(b)%len(displayIDAlphabet)])
			if len(out) == DisplayIDLength {
				break
			}
		}
	}
	return string(out)
}
