package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	tokenSalt   = []byte("darasa.core.user.token_gen")
	tokenB32    = base32.StdEncoding.WithPadding(base32.NoPadding)
	tokenRefDay = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
	errInvalidUID   = errors.New("invalid uid")
)

// EncodeUID base64 encodes the ID of usr for use in password reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(usr.ID)))
}

func decodeUID(uid string) (int, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, errInvalidUID
	}
	id, err := strconv.Atoi(string(idBytes))
	if err != nil || id < 1 {
		return 0, errInvalidUID
	}
	return id, nil
}

// tokenGenerator makes and checks password reset tokens.
// A token is `<base32 day number>-<signature>`; it stops being valid once the user's password
// or last login changes, or after `timeout`.
type tokenGenerator struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

func newTokenGenerator(secretKey string, timeout time.Duration) tokenGenerator {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), secretKey...))
	return tokenGenerator{secret: key[:], timeout: timeout, now: time.Now}
}

func (g tokenGenerator) MakeToken(usr User) (string, error) {
	return g.makeTokenWithDay(usr, daysSinceRef(g.now()))
}

func (g tokenGenerator) verifyToken(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := tokenB32.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	day, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that the token has not been tampered with
	expected, err := g.makeTokenWithDay(usr, day)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 0 {
		return errInvalidToken
	}

	if daysSinceRef(g.now())-day > int(g.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (g tokenGenerator) makeTokenWithDay(usr User, day int) (string, error) {
	h := hmac.New(sha256.New, g.secret)
	if _, err := h.Write(hashValue(usr, day)); err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s-%s", tokenB32.EncodeToString([]byte(strconv.Itoa(day))), sig), nil
}

func daysSinceRef(t time.Time) int {
	return int(t.UTC().Sub(tokenRefDay).Hours() / 24)
}

func hashValue(usr User, day int) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.Itoa(usr.ID))
	val.Write(usr.PasswordHash)
	if usr.LastLogin.Valid {
		val.WriteString(usr.LastLogin.Time.UTC().Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(day))
	return val.Bytes()
}
