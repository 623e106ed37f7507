package status_test

import (
	"testing"

	"github.com/lightningnetwork/onchaind/status"
	"github.com/stretchr/testify/require"
)

func TestExitCodes(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, status.BadCommand.ExitCode())
	require.Equal(t, 2, status.CryptoFailed.ExitCode())
	require.Equal(t, 3, status.InternalError.ExitCode())
}

func TestNewCapturesMessage(t *testing.T) {
	t.Parallel()

	err := status.New(status.CryptoFailed, "signature mismatch on output %d", 3)
	require.Contains(t, err.Error(), "signature mismatch on output 3")
	require.NotEmpty(t, err.ErrorStack())
}
