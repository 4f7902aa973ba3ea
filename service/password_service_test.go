package service

import (
	"strings"
	"testing"

	"cocity-api/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func bcryptService(t *testing.T) *PasswordService {
	t.Helper()
	s, err := NewPasswordService(config.PasswordConfig{Algorithm: AlgorithmBcrypt, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	return s
}

func argon2Service(t *testing.T) *PasswordService {
	t.Helper()
	cfg := config.PasswordConfig{Algorithm: AlgorithmArgon2id}
	cfg.Argon2.Memory = 8 * 1024
	cfg.Argon2.Time = 1
	cfg.Argon2.Parallelism = 1
	s, err := NewPasswordService(cfg)
	require.NoError(t, err)
	return s
}

func TestPasswordService_RoundTrip(t *testing.T) {
	for name, s := range map[string]*PasswordService{
		"bcrypt":   bcryptService(t),
		"argon2id": argon2Service(t),
	} {
		t.Run(name, func(t *testing.T) {
			h1, err := s.Hash("password123")
			require.NoError(t, err)
			h2, err := s.Hash("password123")
			require.NoError(t, err)

			assert.NotEqual(t, h1, h2, "each hash must carry a fresh salt")
			assert.True(t, s.Verify("password123", h1))
			assert.True(t, s.Verify("password123", h2))
			assert.False(t, s.Verify("password124", h1))
			assert.False(t, s.Verify("", h1))
		})
	}
}

func TestPasswordService_Argon2Format(t *testing.T) {
	h, err := argon2Service(t).Hash("s3cret!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=8192,t=1,p=1$"), h)
}

func TestPasswordService_VerifiesEitherAlgorithm(t *testing.T) {
	b := bcryptService(t)
	a := argon2Service(t)

	bh, err := b.Hash("mixed-pass")
	require.NoError(t, err)
	ah, err := a.Hash("mixed-pass")
	require.NoError(t, err)

	assert.True(t, a.Verify("mixed-pass", bh))
	assert.True(t, b.Verify("mixed-pass", ah))
}

func TestPasswordService_MalformedHash(t *testing.T) {
	s := argon2Service(t)
	for _, h := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2id$v=19$m=8192,t=1,p=1$%%%$%%%",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=999999999,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$2b$04$short",
		"$pbkdf2$whatever",
	} {
		assert.False(t, s.Verify("password", h), "hash %q", h)
	}
}

func TestNewPasswordService_Validation(t *testing.T) {
	_, err := NewPasswordService(config.PasswordConfig{Algorithm: "md5"})
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "password.algorithm", cfgErr.Field)

	_, err = NewPasswordService(config.PasswordConfig{Algorithm: AlgorithmBcrypt, BcryptCost: 99})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "password.bcrypt_cost", cfgErr.Field)

	weak := config.PasswordConfig{Algorithm: AlgorithmArgon2id}
	weak.Argon2.Memory = 1024
	weak.Argon2.Time = 1
	weak.Argon2.Parallelism = 1
	_, err = NewPasswordService(weak)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "password.argon2.memory", cfgErr.Field)

	s, err := NewPasswordService(config.PasswordConfig{})
	require.NoError(t, err)
	assert.Equal(t, AlgorithmArgon2id, s.algorithm)
	assert.Equal(t, Argon2Params{Memory: 64 * 1024, Time: 3, Parallelism: 2}, s.argon)
	assert.Equal(t, bcrypt.DefaultCost, s.bcryptCost)
}

func TestPasswordService_DefaultHashesLongPasswords(t *testing.T) {
	s, err := NewPasswordService(config.PasswordConfig{})
	require.NoError(t, err)

	long := strings.Repeat("p", 80)
	h, err := s.Hash(long)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$argon2id$"), h)
	assert.True(t, s.Verify(long, h))
	assert.False(t, s.Verify(long[:72], h))
}

func TestPasswordService_BcryptRejectsLongPasswords(t *testing.T) {
	s := bcryptService(t)

	_, err := s.Hash(strings.Repeat("p", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	h, err := s.Hash(strings.Repeat("p", 72))
	require.NoError(t, err)
	assert.True(t, s.Verify(strings.Repeat("p", 72), h))
}
