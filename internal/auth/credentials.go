package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// The client authenticates with HTTP basic auth: the username is
// "<email>/token" and the password is the shared sender secret.
const usernameSuffix = "/token"

// Credentials are the parsed basic-auth values of a feedback request.
type Credentials struct {
	Username string
	Secret   string
}

// ParseAuthorization decodes a basic Authorization header. Missing or
// malformed headers yield empty credentials; validation happens in
// RequesterEmail and VerifySecret so each endpoint can keep its own
// check order.
func ParseAuthorization(header string) Credentials {
	const prefix = "Basic "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return Credentials{}
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return Credentials{}
	}
	username, secret, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}
	}
	return Credentials{Username: username, Secret: secret}
}

// RequesterEmail extracts the claimed email identity from the username.
func (c Credentials) RequesterEmail() (string, error) {
	if c.Username == "" {
		return "", apperrors.NewAuthError("missing basic auth username")
	}
	email := strings.TrimSuffix(c.Username, usernameSuffix)
	if email == c.Username || email == "" {
		return "", apperrors.NewAuthError("username is not of the form <email>/token")
	}
	return email, nil
}

// VerifySecret compares the presented password against the shared secret
// in constant time.
func (c Credentials) VerifySecret(secret string) error {
	if c.Secret == "" {
		return apperrors.NewSecretError("missing sender auth token")
	}
	if secret == "" {
		return apperrors.NewSecretError("sender auth token is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) != 1 {
		return apperrors.NewSecretError("sender auth token mismatch")
	}
	return nil
}
