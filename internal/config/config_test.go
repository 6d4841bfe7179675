package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SP_ENDPOINT", "https://sandbox.example.com")
	t.Setenv("SP_USERNAME", "merchant")
	t.Setenv("SP_PASSWORD", "password")
	t.Setenv("SP_RETURN_URL", "https://shop.example.com/verify")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, "bookshop", cfg.PostgresDB)
	assert.Equal(t, "SP", cfg.SPPrefix)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("POSTGRES_PORT", "15432")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")

	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 15432, cfg.PostgresPort)
	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.DatabaseURL)
}

func TestLoad_MissingRequired(t *testing.T) {
	cases := []string{"JWT_SECRET", "SP_ENDPOINT", "SP_USERNAME", "SP_PASSWORD", "SP_RETURN_URL"}

	for _, key := range cases {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")

			_, err := Load()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
