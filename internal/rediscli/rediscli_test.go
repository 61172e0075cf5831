package rediscli

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/AhmedB2023/ecommerce-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := New(context.Background(), config.Redis{Enabled: false}, log)
	require.NoError(t, err)
	assert.Nil(t, client)

	_, err = New(context.Background(), config.Redis{Enabled: true, URL: "not a url"}, log)
	require.Error(t, err)
}
