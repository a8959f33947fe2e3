package access

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"oracle-panel/internal/contract"
	"oracle-panel/internal/display"
	"oracle-panel/internal/fault"
)

// Section names used in read errors.
const (
	SectionAdmin  = "admin"
	SectionOwner  = "owner"
	SectionPaused = "paused"
)

// Labeler receives the pause button caption.
type Labeler interface {
	Set(field, value string)
}

// Controller tracks whether the session account may mutate the contract and
// whether the contract circuit breaker is open.
type Controller struct {
	reader contract.Reader
	label  Labeler
	logger zerolog.Logger

	mu      sync.RWMutex
	account common.Address
	admin   bool
	owner   common.Address
	paused  bool
}

// NewController builds a controller. label may be nil.
func NewController(reader contract.Reader, label Labeler, logger zerolog.Logger) *Controller {
	return &Controller{
		reader: reader,
		label:  label,
		logger: logger.With().Str("component", "access").Logger(),
	}
}

// Refresh evaluates the admin flag for account and reads the owner. It runs
// once per session start.
func (c *Controller) Refresh(ctx context.Context, account common.Address) error {
	admin, err := c.reader.IsAdmin(ctx, account)
	if err != nil {
		return fault.Read(SectionAdmin, err)
	}
	owner, err := c.reader.Owner(ctx)
	if err != nil {
		return fault.Read(SectionOwner, err)
	}

	c.mu.Lock()
	c.account = account
	c.admin = admin
	c.owner = owner
	c.mu.Unlock()

	c.logger.Info().Str("account", account.Hex()).Bool("admin", admin).Str("owner", owner.Hex()).Msg("access evaluated")
	return nil
}

// RefreshPaused reads the circuit breaker state and updates the pause label.
// On failure the previous state is kept.
func (c *Controller) RefreshPaused(ctx context.Context) (bool, error) {
	paused, err := c.reader.Paused(ctx)
	if err != nil {
		return c.Paused(), fault.Read(SectionPaused, err)
	}

	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()

	if c.label != nil {
		c.label.Set(display.FieldPauseButton, display.PauseLabel(paused))
	}
	c.logger.Debug().Bool("paused", paused).Msg("pause state refreshed")
	return paused, nil
}

// Guard refuses op when the account is not an admin or the contract is paused.
func (c *Controller) Guard(op string) error {
	if err := c.GuardAdmin(op); err != nil {
		return err
	}
	if c.Paused() {
		return fault.Circuit(op)
	}
	return nil
}

// GuardAdmin refuses op when the account is not an admin. Operations that are
// allowed while paused use this instead of Guard.
func (c *Controller) GuardAdmin(op string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.admin {
		return fault.Access(op, c.account.Hex())
	}
	return nil
}

// IsAdmin reports the admin flag from the last Refresh.
func (c *Controller) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admin
}

// Paused reports the last known circuit state.
func (c *Controller) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Owner returns the contract owner read at session start.
func (c *Controller) Owner() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Account returns the account the controller was refreshed for.
func (c *Controller) Account() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account
}
