package codec

import (
	"crypto/rand"
	"encoding/base64"
)

// NewID generates an opaque, short, unique task id: url-safe base64 of
// 16 random bytes, with the padding '=' characters stripped, matching
// dsq's `make_id` (urlsafe_b64encode(uuid4().bytes).rstrip('=')).
func NewID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return trimPadding(base64.URLEncoding.EncodeToString(buf)), nil
}

func trimPadding(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '=' {
		i--
	}
	return s[:i]
}
