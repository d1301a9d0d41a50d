package mqtt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const stampLayout = "2006010215"

// credentials are the device's broker login.
type credentials struct {
	ClientID string
	Username string
	Password string
}

// deviceCredentials derives the login for deviceID at now. The password is
// the secret signed with the hour stamp that is also part of the client id.
func deviceCredentials(deviceID, secret string, now time.Time) credentials {
	stamp := now.UTC().Format(stampLayout)
	mac := hmac.New(sha256.New, []byte(stamp))
	mac.Write([]byte(secret))
	return credentials{
		ClientID: deviceID + "_0_0_" + stamp,
		Username: deviceID,
		Password: hex.EncodeToString(mac.Sum(nil)),
	}
}
