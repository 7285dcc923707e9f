package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/bootstrap"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

func memoryOpener(repos bootstrap.Repositories) backendOpener {
	return func(context.Context) (*backend, error) {
		cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "cli-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}}
		return &backend{cfg: cfg, logger: zap.NewNop(), postgres: &persistence.Postgres{}, repos: repos}, nil
	}
}

func run(t *testing.T, open backendOpener, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateUserProvisionsAdmin(t *testing.T) {
	repos := bootstrap.NewRepositories(nil)

	out, err := run(t, memoryOpener(repos), "create-user", "--username", "boss", "--email", "Boss@Example.com", "--password", "hunter22")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin boss")

	user, err := repos.Users.GetByUsername(context.Background(), "boss")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Equal(t, "boss@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	_, err := run(t, memoryOpener(bootstrap.NewRepositories(nil)), "create-user", "--username", "x1y", "--email", "x@y.io", "--password", "p", "--role", "root")
	assert.EqualError(t, err, `invalid role "root"`)
}

func TestCreateUserRequiresFlags(t *testing.T) {
	_, err := run(t, memoryOpener(bootstrap.NewRepositories(nil)), "create-user", "--username", "nobody")
	assert.Error(t, err)
}

func TestMigrateNeedsDatabase(t *testing.T) {
	_, err := run(t, memoryOpener(bootstrap.NewRepositories(nil)), "migrate")
	assert.EqualError(t, err, "POSTGRES_DSN must be set")
}
