package fx

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"ladder-engine/internal/server"
)

func TestModuleGraph(t *testing.T) {
	err := fx.ValidateApp(
		Module,
		fx.Invoke(func(*server.LadderServer) {}),
	)
	require.NoError(t, err)
}
