package decode

import "encoding/base64"

func bytesToBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
