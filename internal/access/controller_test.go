package access

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-panel/internal/contract/contracttest"
	"oracle-panel/internal/display"
	"oracle-panel/internal/fault"
)

var admin = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func TestGuardRefusesNonAdmin(t *testing.T) {
	o := contracttest.New()
	c := NewController(o, nil, zerolog.Nop())
	require.NoError(t, c.Refresh(context.Background(), admin))

	err := c.Guard("update-packs")
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindAccess))
	assert.True(t, fault.Is(c.GuardAdmin("toggle-pause"), fault.KindAccess))
}

func TestGuardRefusesWhilePaused(t *testing.T) {
	o := contracttest.New()
	o.Admins[admin] = true
	o.OwnerAddr = admin
	o.SetPaused(true)

	board := display.NewBoard(zerolog.Nop())
	c := NewController(o, board, zerolog.Nop())
	require.NoError(t, c.Refresh(context.Background(), admin))
	paused, err := c.RefreshPaused(context.Background())
	require.NoError(t, err)
	assert.True(t, paused)

	assert.True(t, fault.Is(c.Guard("update-packs"), fault.KindCircuit))
	assert.NoError(t, c.GuardAdmin("toggle-pause"), "toggle is exempt from the pause gate")
	assert.Equal(t, "Unpause", board.Value(display.FieldPauseButton))
	assert.Equal(t, admin, c.Owner())
}

func TestRefreshPausedKeepsStateOnReadError(t *testing.T) {
	o := contracttest.New()
	o.Admins[admin] = true
	o.SetPaused(true)
	c := NewController(o, nil, zerolog.Nop())
	require.NoError(t, c.Refresh(context.Background(), admin))
	_, err := c.RefreshPaused(context.Background())
	require.NoError(t, err)

	o.SetPaused(false)
	o.SetFail("paused", errors.New("timeout"))
	paused, err := c.RefreshPaused(context.Background())
	assert.True(t, fault.Is(err, fault.KindRead))
	assert.True(t, paused)
	assert.True(t, c.Paused())
}

func TestRefreshSurfacesAdminReadError(t *testing.T) {
	o := contracttest.New()
	o.SetFail("isAdmin", errors.New("rpc down"))
	c := NewController(o, nil, zerolog.Nop())

	err := c.Refresh(context.Background(), admin)
	assert.True(t, fault.Is(err, fault.KindRead))
	assert.False(t, c.IsAdmin())
}
