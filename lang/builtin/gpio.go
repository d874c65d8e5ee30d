package builtin

import (
	"github.com/cmarrin/m8rscript/lang/host"
	"github.com/cmarrin/m8rscript/lang/machine"
	"github.com/cmarrin/m8rscript/lang/value"
)

// newGPIOProto builds the `GPIO` global: setPinMode/digitalRead/
// digitalWrite/onInterrupt, plus the PinMode and Trigger enumerant
// namespaces, wired against rt.GPIO -- never against real hardware
// registers directly, matching the host-collaborator seam lang/host
// defines.
func newGPIOProto(rt *Runtime) *proto {
	p := newProto(rt, "GPIO")

	p.set("setPinMode", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		pin := intArg(arg(args, 0))
		mode, err := pinModeArg(arg(args, 1))
		if err != nil {
			return value.NativeResult{}, err
		}
		if err := rt.GPIO.SetPinMode(pin, mode); err != nil {
			return value.NativeResult{}, err
		}
		return normal(value.Undefined{}, nil)
	})
	p.set("digitalRead", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		b, err := rt.GPIO.DigitalRead(intArg(arg(args, 0)))
		if err != nil {
			return value.NativeResult{}, err
		}
		return normal(boolToInt(b), nil)
	})
	p.set("digitalWrite", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		pin := intArg(arg(args, 0))
		if err := rt.GPIO.DigitalWrite(pin, value.Truthy(arg(args, 1))); err != nil {
			return value.NativeResult{}, err
		}
		return normal(value.Undefined{}, nil)
	})
	p.set("onInterrupt", func(_ value.Value, args []value.Value) (value.NativeResult, error) {
		pin := intArg(arg(args, 0))
		trig, err := triggerArg(arg(args, 1))
		if err != nil {
			return value.NativeResult{}, err
		}
		cb, ok := arg(args, 2).(value.Callable)
		if !ok {
			return value.NativeResult{}, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "GPIO.onInterrupt: callback is not callable"}
		}
		// The interrupt callback runs on whatever goroutine the host fires
		// it from; it must enqueue through FireEvent rather than calling the
		// script closure directly.
		if err := rt.GPIO.OnInterrupt(pin, trig, func(p int) {
			if rt.Thread == nil {
				return
			}
			rt.Thread.FireEvent(machine.Event{Callable: cb, This: value.Undefined{}, Args: []value.Value{value.Int(p)}})
		}); err != nil {
			return value.NativeResult{}, err
		}
		return normal(value.Undefined{}, nil)
	})

	pinModes := newProto(rt, "PinMode")
	for name, m := range map[string]host.PinMode{
		"Input": host.Input, "Output": host.Output, "InputPullup": host.InputPullup,
		"InputPulldown": host.InputPulldown, "OutputOpenDrain": host.OutputOpenDrain,
	} {
		_ = pinModes.SetAttr(name, value.Int(m))
	}
	_ = p.SetAttr("PinMode", pinModes)

	triggers := newProto(rt, "Trigger")
	for name, t := range map[string]host.Trigger{
		"None": host.TriggerNone, "RisingEdge": host.RisingEdge, "FallingEdge": host.FallingEdge,
		"BothEdges": host.BothEdges, "Low": host.Low, "High": host.High,
	} {
		_ = triggers.SetAttr(name, value.Int(t))
	}
	_ = p.SetAttr("Trigger", triggers)

	return p
}

func pinModeArg(v value.Value) (host.PinMode, error) {
	i, ok := v.(value.Int)
	if !ok {
		return 0, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "pin mode must be a GPIO.PinMode Int"}
	}
	return host.PinMode(i), nil
}

func triggerArg(v value.Value) (host.Trigger, error) {
	i, ok := v.(value.Int)
	if !ok {
		return 0, &machine.ExecError{Kind: machine.KindInvalidArgumentValue, Msg: "trigger must be a GPIO.Trigger Int"}
	}
	return host.Trigger(i), nil
}
