package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cocity-api/config"
	"cocity-api/logger"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

const (
	argon2SaltLength uint32 = 16
	argon2KeyLength  uint32 = 32

	minArgon2Memory uint32 = 8 * 1024
	maxArgon2Memory uint32 = 1024 * 1024
	maxArgon2Time   uint32 = 64

	defaultArgon2Memory      uint32 = 64 * 1024
	defaultArgon2Time        uint32 = 3
	defaultArgon2Parallelism uint8  = 2

	// bcrypt only reads the first 72 bytes of its input.
	maxBcryptPasswordBytes = 72
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A malformed or
	// unrecognised hash yields false.
	Verify(password, hash string) bool
}

// Argon2Params are the argon2id cost parameters used for new hashes.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

// PasswordService produces hashes with the configured algorithm and verifies
// hashes of either supported algorithm, so a deployment can switch algorithms
// without invalidating stored passwords.
type PasswordService struct {
	algorithm  string
	bcryptCost int
	argon      Argon2Params
}

// NewPasswordService builds a PasswordService from configuration.
func NewPasswordService(cfg config.PasswordConfig) (*PasswordService, error) {
	s := &PasswordService{
		algorithm:  cfg.Algorithm,
		bcryptCost: cfg.BcryptCost,
		argon: Argon2Params{
			Memory:      cfg.Argon2.Memory,
			Time:        cfg.Argon2.Time,
			Parallelism: cfg.Argon2.Parallelism,
		},
	}
	if s.algorithm == "" {
		s.algorithm = AlgorithmArgon2id
	}
	if s.bcryptCost == 0 {
		s.bcryptCost = bcrypt.DefaultCost
	}
	if s.argon == (Argon2Params{}) {
		s.argon = Argon2Params{
			Memory:      defaultArgon2Memory,
			Time:        defaultArgon2Time,
			Parallelism: defaultArgon2Parallelism,
		}
	}

	switch s.algorithm {
	case AlgorithmBcrypt:
		if s.bcryptCost < bcrypt.MinCost || s.bcryptCost > bcrypt.MaxCost {
			return nil, &config.ConfigurationError{Field: "password.bcrypt_cost", Reason: fmt.Sprintf("must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)}
		}
	case AlgorithmArgon2id:
		if err := validateArgon2Params(s.argon); err != nil {
			return nil, err
		}
	default:
		return nil, &config.ConfigurationError{Field: "password.algorithm", Reason: "must be bcrypt or argon2id"}
	}
	return s, nil
}

func validateArgon2Params(p Argon2Params) error {
	switch {
	case p.Memory < minArgon2Memory || p.Memory > maxArgon2Memory:
		return &config.ConfigurationError{Field: "password.argon2.memory", Reason: fmt.Sprintf("must be between %d and %d KiB", minArgon2Memory, maxArgon2Memory)}
	case p.Time < 1 || p.Time > maxArgon2Time:
		return &config.ConfigurationError{Field: "password.argon2.time", Reason: fmt.Sprintf("must be between 1 and %d", maxArgon2Time)}
	case p.Parallelism < 1:
		return &config.ConfigurationError{Field: "password.argon2.parallelism", Reason: "must be at least 1"}
	}
	return nil
}

// Hash returns ErrPasswordTooLong when bcrypt is configured and password is
// longer than bcrypt can take.
func (s *PasswordService) Hash(password string) (string, error) {
	if s.algorithm == AlgorithmArgon2id {
		return s.hashArgon2(password)
	}
	if len(password) > maxBcryptPasswordBytes {
		return "", ErrPasswordTooLong
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(bytes), nil
}

func (s *PasswordService) hashArgon2(password string) (string, error) {
	salt := make([]byte, argon2SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		logger.Log.WithError(err).Error("Failed to read password salt")
		return "", fmt.Errorf("could not generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, s.argon.Time, s.argon.Memory, s.argon.Parallelism, argon2KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		AlgorithmArgon2id,
		argon2.Version,
		s.argon.Memory,
		s.argon.Time,
		s.argon.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (s *PasswordService) Verify(password, hash string) bool {
	switch {
	case strings.HasPrefix(hash, "$"+AlgorithmArgon2id+"$"):
		return verifyArgon2(password, hash)
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	return false
}

type argon2Hash struct {
	params Argon2Params
	salt   []byte
	key    []byte
}

func verifyArgon2(password, encoded string) bool {
	parsed, err := parseArgon2Hash(encoded)
	if err != nil {
		logger.Log.WithError(err).Warn("Stored argon2id hash is malformed")
		return false
	}

	key := argon2.IDKey([]byte(password), parsed.salt, parsed.params.Time, parsed.params.Memory, parsed.params.Parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(key, parsed.key) == 1
}

// parseArgon2Hash reads the PHC string form:
// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
func parseArgon2Hash(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != AlgorithmArgon2id {
		return nil, errors.New("invalid PHC format")
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errors.New("unsupported argon2 version")
	}

	var p Argon2Params
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, errors.New("invalid memory parameter")
			}
			p.Memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, errors.New("invalid time parameter")
			}
			p.Time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil {
				return nil, errors.New("invalid parallelism parameter")
			}
			p.Parallelism = uint8(n)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if err := validateArgon2Params(p); err != nil {
		return nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(argon2SaltLength) {
		return nil, errors.New("invalid salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < 16 {
		return nil, errors.New("invalid key")
	}

	return &argon2Hash{params: p, salt: salt, key: key}, nil
}
