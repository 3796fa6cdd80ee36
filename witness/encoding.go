package witness

import (
	"encoding/base64"
	"encoding/hex"
)

// hexDecode and base64Decode let verifyLocalBLS accept either encoding for a
// signature field, since different gateway software versions in the
// federation have shipped both.

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
