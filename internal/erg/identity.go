package erg

// Identity describes one physical ergometer. The discovery fields (ID,
// Name, RSSI) are populated when the device is first seen; the remaining
// fields are populated at most once each while the owning session is
// querying the device-information service.
type Identity struct {
	// ID is the opaque transport handle for the device, stable per
	// physical machine.
	ID string `json:"id"`

	// Name is the advertised local name, empty when not broadcast.
	Name string `json:"name,omitempty"`

	// RSSI is the signal strength sampled at discovery time.
	RSSI int `json:"rssi"`

	ModelNumber      string `json:"model_number,omitempty"`
	SerialNumber     string `json:"serial_number,omitempty"`
	HardwareRevision string `json:"hardware_revision,omitempty"`
	FirmwareRevision string `json:"firmware_revision,omitempty"`
	Manufacturer     string `json:"manufacturer,omitempty"`

	// DeviceType is the decoded machine type, e.g. "staticD".
	DeviceType string `json:"device_type,omitempty"`
}

// DisplayName returns the advertised name, falling back to the identifier.
func (id Identity) DisplayName() string {
	if id.Name != "" {
		return id.Name
	}
	return id.ID
}
