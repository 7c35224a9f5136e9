package account

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Password reset tokens read "<issue time, base36 unix seconds>.<signature>".
// The signature covers the account state a reset or a login changes, so a token works once.

var (
	tokenKeySalt = []byte("academia/account/password-reset")
	NowFunc      = time.Now // mockable

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes the Account ID
func EncodeUID(acc Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(acc.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeToken generates a password reset token for acc, signed with secret.
// Changing the password, role or email of acc, or logging in, invalidates it.
func MakeToken(acc Account, secret string) (string, error) {
	return signToken(acc, secret, NowFunc().Unix())
}

// verifyToken checks that token was issued for acc in its current state less than timeout ago.
func verifyToken(acc Account, token, secret string, timeout time.Duration) error {
	issuedPart, _, ok := strings.Cut(token, ".")
	if !ok {
		return errInvalidToken
	}
	issued, err := strconv.ParseInt(issuedPart, 36, 64)
	if err != nil {
		return errInvalidToken
	}

	expected, err := signToken(acc, secret, issued)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return errInvalidToken
	}

	if NowFunc().Sub(time.Unix(issued, 0)) > timeout {
		return errTokenExpired
	}
	return nil
}

func signToken(acc Account, secret string, issued int64) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, tokenKeySalt...), secret...))
	mac := hmac.New(sha256.New, key[:])
	for _, field := range tokenState(acc, issued) {
		// length prefixed, so adjacent fields cannot run into each other
		if _, err := fmt.Fprintf(mac, "%d:%s", len(field), field); err != nil {
			return "", errors.Wrap(err, "signing token")
		}
	}
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return strconv.FormatInt(issued, 36) + "." + sig, nil
}

func tokenState(acc Account, issued int64) []string {
	lastLogin := ""
	if !acc.LastLogin.IsZero() {
		lastLogin = acc.LastLogin.UTC().Format(time.RFC3339Nano)
	}
	return []string{
		acc.ID,
		string(acc.Role),
		acc.Email,
		string(acc.PasswordHash),
		lastLogin,
		strconv.FormatInt(issued, 10),
	}
}
