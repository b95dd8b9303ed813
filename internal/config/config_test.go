package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiresToken(t *testing.T) {
	p := &Profile{Storage: StorageMemory, Ingest: IngestLongpoll}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")
}

func TestValidateRejectsUnknownStorage(t *testing.T) {
	p := &Profile{Token: "tok", Storage: "mongo", Ingest: IngestLongpoll}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage driver")
}

func TestValidateRequiresDSNForRedis(t *testing.T) {
	p := &Profile{Token: "tok", Storage: StorageRedis, Ingest: IngestLongpoll}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a DSN")
}

func TestValidateRequiresAddrForWebhook(t *testing.T) {
	p := &Profile{Token: "tok", Storage: StorageMemory, Ingest: IngestWebhook}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an --addr")
}

func TestValidateNormalizesUnknownMode(t *testing.T) {
	p := &Profile{Token: "tok", Mode: "bogus", Storage: StorageMemory, Ingest: IngestLongpoll, Addr: ":8080"}
	require.NoError(t, p.Validate())
	assert.Equal(t, "dev", p.Mode)
}

func TestValidateAcceptsMemoryLongpoll(t *testing.T) {
	p := &Profile{Token: "tok", Mode: "prod", Storage: StorageMemory, Ingest: IngestLongpoll}
	assert.NoError(t, p.Validate())
}
