package excon

import "encoding/base64"

// basicAuth renders "Basic <base64(user:pass)>" (§6 Basic auth from URL /
// proxy credentials). base64 never contains CR or LF (§8 round-trip law).
func basicAuth(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}
