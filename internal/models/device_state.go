package models

// DeviceState is a consistent snapshot of the emulated oven controller.
type DeviceState struct {
	HeaterOn     bool   `json:"heater_on"`
	TemperatureC uint16 `json:"temperature_c"`
	Reserved     bool   `json:"reserved"`
	Owner        string `json:"owner,omitempty"` // ip:port of the reservation holder
	Variant      string `json:"variant,omitempty"`
}
