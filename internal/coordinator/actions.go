package coordinator

import (
	"context"
	"fmt"

	"github.com/reeflink/reeflink/internal/state"
)

// Control actions call the controller and, on success, fold the new
// state into the published snapshot immediately instead of waiting for
// the next cycle. Errors surface with the same classification as the
// refresh cycle.

// SetEquipment switches a power outlet on or off.
func (c *Coordinator) SetEquipment(ctx context.Context, id string, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := c.published.Load().Clone()
	entry, ok := clone.Equipment[id]
	if !ok {
		return fmt.Errorf("%w: equipment %s", ErrUnknownDevice, id)
	}

	if err := c.client.EquipmentControl(ctx, id, on); err != nil {
		return c.classify(err)
	}

	entry.On = on
	clone.Equipment[id] = entry
	c.published.Store(clone)
	c.sendEvent(Event{Type: EventDevice, Kind: state.KindEquipment, ID: id})
	return nil
}

// SetTimer enables or disables a timer.
func (c *Coordinator) SetTimer(ctx context.Context, id string, enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := c.published.Load().Clone()
	entry, ok := clone.Timers[id]
	if !ok {
		return fmt.Errorf("%w: timer %s", ErrUnknownDevice, id)
	}

	if err := c.client.TimerControl(ctx, id, enable); err != nil {
		return c.classify(err)
	}

	entry.Enable = enable
	clone.Timers[id] = entry
	c.published.Store(clone)
	c.sendEvent(Event{Type: EventDevice, Kind: state.KindTimer, ID: id})
	return nil
}

// SetLight sets a manual light channel to a 0-100 value. The id is the
// snapshot's composite "{lightID}-{channelID}" key.
func (c *Coordinator) SetLight(ctx context.Context, id string, value float64) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("light value %v out of range 0-100", value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	clone := c.published.Load().Clone()
	entry, ok := clone.Lights[id]
	if !ok {
		return fmt.Errorf("%w: light channel %s", ErrUnknownDevice, id)
	}

	if err := c.client.LightUpdate(ctx, entry.LightID, entry.ChannelID, value); err != nil {
		return c.classify(err)
	}

	entry.Value = value
	entry.On = value > 0
	clone.Lights[id] = entry
	c.published.Store(clone)
	c.sendEvent(Event{Type: EventDevice, Kind: state.KindLight, ID: id})
	return nil
}

// SetATO enables or disables an auto-top-off unit.
func (c *Coordinator) SetATO(ctx context.Context, id string, enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := c.published.Load().Clone()
	entry, ok := clone.ATOs[id]
	if !ok {
		return fmt.Errorf("%w: ato %s", ErrUnknownDevice, id)
	}

	if err := c.client.ATOUpdate(ctx, id, enable); err != nil {
		return c.classify(err)
	}

	entry.Enable = enable
	clone.ATOs[id] = entry
	c.published.Store(clone)
	c.sendEvent(Event{Type: EventDevice, Kind: state.KindATO, ID: id})
	return nil
}

// RunMacro triggers a macro. Macros have no state to fold back.
func (c *Coordinator) RunMacro(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.published.Load().Macros[id]; !ok {
		return fmt.Errorf("%w: macro %s", ErrUnknownDevice, id)
	}
	if err := c.client.RunMacro(ctx, id); err != nil {
		return c.classify(err)
	}
	return nil
}

// SetDisplay switches the controller display on or off.
func (c *Coordinator) SetDisplay(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.DisplaySwitch(ctx, on); err != nil {
		return c.classify(err)
	}

	clone := c.published.Load().Clone()
	if clone.Display == nil {
		clone.Display = &state.DisplayState{}
	}
	clone.Display.On = on
	c.published.Store(clone)
	c.sendEvent(Event{Type: EventDevice, Kind: state.KindDisplay})
	return nil
}

// SetDisplayBrightness sets the display brightness percentage.
func (c *Coordinator) SetDisplayBrightness(ctx context.Context, value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("display brightness %d out of range 0-100", value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.DisplayBrightness(ctx, value); err != nil {
		return c.classify(err)
	}

	clone := c.published.Load().Clone()
	if clone.Display == nil {
		clone.Display = &state.DisplayState{}
	}
	clone.Display.Brightness = value
	c.published.Store(clone)
	c.sendEvent(Event{Type: EventDevice, Kind: state.KindDisplay})
	return nil
}

// Reboot asks the controller to reboot.
func (c *Coordinator) Reboot(ctx context.Context) error {
	if err := c.client.Reboot(ctx); err != nil {
		return c.classify(err)
	}
	return nil
}

// PowerOff asks the controller to power off.
func (c *Coordinator) PowerOff(ctx context.Context) error {
	if err := c.client.PowerOff(ctx); err != nil {
		return c.classify(err)
	}
	return nil
}
