package main

import "github.com/giantt-project/convergent/go/value"

func deviceID(s string) value.DeviceId {
	return value.DeviceId(s)
}
