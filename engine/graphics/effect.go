package graphics

import "fmt"

/** @brief A compiled shader program resource. */
type Effect struct {
	device Device
	handle Handle

	Bytecode []byte

	destroyed bool
}

func NewEffect(device Device, bytecode []byte) (*Effect, error) {
	if device == nil {
		return nil, fmt.Errorf("effect requires a graphics device")
	}
	h, err := device.CreateEffect(bytecode)
	if err != nil {
		return nil, err
	}
	return &Effect{device: device, handle: h, Bytecode: bytecode}, nil
}

func (e *Effect) Handle() Handle {
	return e.handle
}

func (e *Effect) Destroy() error {
	if e.destroyed {
		return nil
	}
	e.destroyed = true
	return e.device.DestroyResource(e.handle)
}
