// Package auth issues and verifies session and activation tokens and hashes secrets.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"bookstore-backend/models"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const bcryptCost = 10

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type SessionClaims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

// PendingUser is the registration data carried inside an activation token
// until the OTP is confirmed. Password is already hashed. The token holder
// cannot read it: it travels sealed together with the OTP.
type PendingUser struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Avatar   models.Image `json:"avatar"`
}

// ActivationClaims is signed like a session token but only the expiry is
// readable. User and OTP are filled in from the sealed payload on parse.
type ActivationClaims struct {
	Sealed string      `json:"sealed"`
	User   PendingUser `json:"-"`
	OTP    int         `json:"-"`
	jwt.StandardClaims
}

type activationPayload struct {
	User PendingUser `json:"user"`
	OTP  int         `json:"otp"`
}

type Tokens struct {
	secret        []byte
	sealKey       [32]byte
	sessionTTL    time.Duration
	activationTTL time.Duration
}

func NewTokens(secret string, sessionTTL, activationTTL time.Duration) *Tokens {
	t := &Tokens{secret: []byte(secret), sessionTTL: sessionTTL, activationTTL: activationTTL}
	// The sealing key is derived so that it never equals the signing key.
	kdf := hkdf.New(sha256.New, t.secret, nil, []byte("bookstore activation seal"))
	if _, err := io.ReadFull(kdf, t.sealKey[:]); err != nil {
		panic("auth: derive seal key: " + err.Error())
	}
	return t
}

func (t *Tokens) SessionTTL() time.Duration { return t.sessionTTL }

func (t *Tokens) IssueSession(u *models.User) (string, error) {
	claims := SessionClaims{
		UserID: u.ID.Hex(),
		Role:   u.Role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(t.sessionTTL).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) ParseSession(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := t.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) seal(v any) (string, error) {
	msg, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], msg, &nonce, &t.sealKey)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (t *Tokens) open(sealed string, v any) error {
	box, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(box) < 24 {
		return ErrInvalidToken
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	msg, ok := secretbox.Open(nil, box[24:], &nonce, &t.sealKey)
	if !ok {
		return ErrInvalidToken
	}
	if err := json.Unmarshal(msg, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}

func (t *Tokens) IssueActivation(u PendingUser, otp int) (string, error) {
	sealed, err := t.seal(activationPayload{User: u, OTP: otp})
	if err != nil {
		return "", err
	}
	claims := ActivationClaims{
		Sealed: sealed,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(t.activationTTL).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) ParseActivation(tokenStr string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := t.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	var payload activationPayload
	if err := t.open(claims.Sealed, &payload); err != nil {
		return nil, err
	}
	claims.User, claims.OTP = payload.User, payload.OTP
	return claims, nil
}

func (t *Tokens) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// GenerateOTP returns a uniformly random six digit code.
func GenerateOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 100000, nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ComparePassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// NewResetToken returns the raw token to mail to the user and the hash to store.
func NewResetToken() (raw, hash string, err error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashResetToken(raw), nil
}

func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
