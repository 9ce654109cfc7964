package actuator

import (
	"context"

	"github.com/rs/zerolog"
)

// Controller applies a desired actuator policy edge-triggered: the device is
// only called when the desired value differs from the last acknowledged one,
// and the acknowledged value only advances on success. A failed call leaves
// the state unchanged so the next cycle retries the same toggle.
type Controller struct {
	logger zerolog.Logger
	device Actuator
	known  *bool
}

// NewController wraps a device in edge-triggered apply semantics.
func NewController(logger zerolog.Logger, device Actuator) *Controller {
	logger.Info().
		Str("capability", string(device.Capability())).
		Msg("actuator initialized")
	return &Controller{logger: logger, device: device}
}

// Apply reconciles the device with the desired value.
func (c *Controller) Apply(ctx context.Context, desired bool) error {
	if c.known != nil && *c.known == desired {
		return nil
	}

	if err := c.device.Set(ctx, desired); err != nil {
		return err
	}

	value := desired
	c.known = &value
	c.logger.Info().Bool("active", desired).Msg("actuator toggled")
	return nil
}

// Known returns the last acknowledged device value, or false and !ok before
// any successful call.
func (c *Controller) Known() (bool, bool) {
	if c.known == nil {
		return false, false
	}
	return *c.known, true
}
