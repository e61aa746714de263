package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// DefaultMinPasswordBytes is the shortest password Hash accepts when
	// Config.MinPasswordBytes is zero.
	DefaultMinPasswordBytes = 10
	// DefaultMaxPasswordBytes caps the input fed to Argon2 when
	// Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrInvalidConfig is returned by NewArgon2 for cost parameters below the floor.
	ErrInvalidConfig = errors.New("password: invalid argon2 config")
	// ErrPasswordTooShort is returned by Hash for passwords under the minimum length.
	ErrPasswordTooShort = errors.New("password: too short")
	// ErrPasswordTooLong is returned by Hash and Verify for oversized input.
	ErrPasswordTooLong = errors.New("password: too long")
	// ErrInvalidHash is returned when a stored hash is not a usable argon2id PHC string.
	ErrInvalidHash = errors.New("password: invalid encoded hash")
)

// Config holds the Argon2id cost parameters and password length bounds.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinPasswordBytes int
	MaxPasswordBytes int
}

// DefaultConfig returns the recommended interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

type encodedHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MinPasswordBytes <= 0 {
		cfg.MinPasswordBytes = DefaultMinPasswordBytes
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a fresh salted hash of password and encodes it as a PHC string.
// Password bytes are used exactly as given, with no Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < a.config.MinPasswordBytes {
		return "", fmt.Errorf("%w: need at least %d bytes", ErrPasswordTooShort, a.config.MinPasswordBytes)
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. A false result with a nil
// error is a plain mismatch; an error means encoded could not be used.
func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's current configuration.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	switch {
	case a.config.Memory > h.memory,
		a.config.Time > h.time,
		a.config.Parallelism > h.parallelism,
		a.config.KeyLength != uint32(len(h.key)):
		return true, nil
	}
	return false, nil
}

func decodeHash(encoded string) (*encodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 fields", ErrInvalidHash)
	}
	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, fmt.Errorf("%w: bad version field", ErrInvalidHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	h := &encodedHash{}
	if err := h.parseParams(parts[3]); err != nil {
		return nil, err
	}

	if h.salt, err = decodeSegment(parts[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	if h.key, err = decodeSegment(parts[5]); err != nil || len(h.key) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}
	return h, nil
}

// decodeSegment accepts both unpadded (PHC) and padded base64.
func decodeSegment(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func (h *encodedHash) parseParams(field string) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(field, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return fmt.Errorf("%w: bad parameter %q", ErrInvalidHash, pair)
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return fmt.Errorf("%w: bad memory cost", ErrInvalidHash)
			}
			h.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return fmt.Errorf("%w: bad time cost", ErrInvalidHash)
			}
			h.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return fmt.Errorf("%w: bad parallelism", ErrInvalidHash)
			}
			h.parallelism = uint8(v)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrInvalidHash, name)
		}
	}
	if !seen["m"] || !seen["t"] || !seen["p"] {
		return fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	return nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("%w: memory must be >= %d KiB", ErrInvalidConfig, minMemoryKB)
	case cfg.Time < minTimeCost:
		return fmt.Errorf("%w: time must be >= %d", ErrInvalidConfig, minTimeCost)
	case cfg.Parallelism < minParallelism:
		return fmt.Errorf("%w: parallelism must be >= %d", ErrInvalidConfig, minParallelism)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("%w: salt length must be >= %d", ErrInvalidConfig, minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("%w: key length must be >= %d", ErrInvalidConfig, minKeyLength)
	case cfg.MinPasswordBytes > 0 && cfg.MaxPasswordBytes > 0 && cfg.MinPasswordBytes > cfg.MaxPasswordBytes:
		return fmt.Errorf("%w: min password length exceeds max", ErrInvalidConfig)
	}
	return nil
}
