package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_validate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr error
	}{
		{name: "dev with default key", conf: Config{Env: "development", SecretKey: devSecretKey}},
		{name: "production with default key", conf: Config{Env: EnvProduction, SecretKey: devSecretKey}, wantErr: errInsecureSecretKey},
		{name: "production without key", conf: Config{Env: EnvProduction}, wantErr: errInsecureSecretKey},
		{name: "production with key", conf: Config{Env: EnvProduction, SecretKey: "s3cr3t-from-the-vault"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("SECRET_KEY", "s3cr3t-from-the-vault")
	t.Setenv("MAGIC_LINK_TTL", "1h")
	for _, key := range []string{"DEBUG", "SMTP_HOST", "SENDGRID_API_KEY"} {
		t.Setenv(key, "") // empty env vars are ignored
	}

	conf := NewConfig()
	assert.True(t, conf.IsProduction())
	assert.False(t, conf.Debug)
	assert.Equal(t, "s3cr3t-from-the-vault", conf.SecretKey)
	assert.Equal(t, time.Hour, conf.MagicLinkTTL)
	assert.Equal(t, 7*24*time.Hour, conf.Server.SessionMaxAge)
	assert.True(t, conf.DevMailMode())
}
