package user

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
)

// argon2id parameters for new hashes (OWASP minimum profile).
const (
	argonMemory  = 19 * 1024
	argonTime    = 2
	argonThreads = 1
	argonSaltLen = 16
	argonKeyLen  = 32

	// maxArgonMemory and maxArgonTime cap the cost a stored hash may ask a
	// verifier to pay.
	maxArgonMemory = 1 << 20
	maxArgonTime   = 16
)

// Password holds an argon2id hash in PHC string format:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<key>
//
// String renders the hash armored in unpadded standard base64.
type Password struct {
	hash string
}

type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decodePHC(s string) (*phc, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, err
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	h := &phc{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return nil, err
	}
	if h.memory == 0 || h.memory > maxArgonMemory || h.time == 0 || h.time > maxArgonTime || h.threads == 0 {
		return nil, errors.New("argon2 parameters out of range")
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, err
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, err
	}
	if len(h.key) == 0 {
		return nil, errors.New("empty argon2 key")
	}
	return h, nil
}

// GeneratePassword hashes plain with a fresh random salt.
func GeneratePassword(plain string) (Password, error) {
	salt := common.GenerateRandByteArray(argonSaltLen)
	key := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	defer common.WipeByteArray(key)

	hash := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return Password{hash: hash}, nil
}

// ParsePassword accepts a PHC hash either armored (as rendered by String) or
// raw, as stored in the database.
func ParsePassword(s string) (Password, error) {
	if raw, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		if _, err := decodePHC(string(raw)); err == nil {
			return Password{hash: string(raw)}, nil
		}
	}
	if _, err := decodePHC(s); err == nil {
		return Password{hash: s}, nil
	}
	return Password{}, common.NewInvalidValue("Password")
}

// Verify reports whether plain matches the hash.
func (p Password) Verify(plain string) bool {
	h, err := decodePHC(p.hash)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(plain), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	defer common.WipeByteArray(key)

	return subtle.ConstantTimeCompare(key, h.key) == 1
}

// Hash returns the raw PHC string.
func (p Password) Hash() string { return p.hash }

func (p Password) String() string {
	return base64.RawStdEncoding.EncodeToString([]byte(p.hash))
}
