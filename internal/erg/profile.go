package erg

import "github.com/rowkit/ergble/internal/telemetry"

// Vendor GATT identifiers for the ergometer's BLE services. The monitor
// advertises the base service UUID; identity lives in the device-information
// service and workout telemetry in the rowing service.
const (
	// AdvertisedServiceUUID is the vendor base service present in
	// advertising packets, used as the scan filter.
	AdvertisedServiceUUID = "ce060000-43e5-11e4-916c-0800200c9a66"

	// InformationServiceUUID holds the identity read characteristics.
	InformationServiceUUID = "ce060010-43e5-11e4-916c-0800200c9a66"

	CharModelNumberUUID      = "ce060011-43e5-11e4-916c-0800200c9a66"
	CharSerialNumberUUID     = "ce060012-43e5-11e4-916c-0800200c9a66"
	CharHardwareRevisionUUID = "ce060013-43e5-11e4-916c-0800200c9a66"
	CharFirmwareRevisionUUID = "ce060014-43e5-11e4-916c-0800200c9a66"
	CharManufacturerUUID     = "ce060015-43e5-11e4-916c-0800200c9a66"
	CharMachineTypeUUID      = "ce060016-43e5-11e4-916c-0800200c9a66"

	// RowingServiceUUID holds the telemetry notification characteristics.
	RowingServiceUUID = "ce060030-43e5-11e4-916c-0800200c9a66"

	CharGeneralStatusUUID    = "ce060031-43e5-11e4-916c-0800200c9a66"
	CharAdditionalStatusUUID = "ce060032-43e5-11e4-916c-0800200c9a66"
	CharEndOfWorkoutUUID     = "ce060039-43e5-11e4-916c-0800200c9a66"
)

// CharacteristicRole names what a resolved characteristic is for. Roles are
// resolved once from UUIDs during discovery so that event dispatch never
// compares identifier strings again.
type CharacteristicRole int

const (
	RoleUnknown CharacteristicRole = iota
	RoleModelNumber
	RoleSerialNumber
	RoleHardwareRevision
	RoleFirmwareRevision
	RoleManufacturer
	RoleMachineType
	RoleGeneralStatus
	RoleAdditionalStatus
	RoleEndOfWorkout
)

var roleNames = map[CharacteristicRole]string{
	RoleUnknown:          "unknown",
	RoleModelNumber:      "model_number",
	RoleSerialNumber:     "serial_number",
	RoleHardwareRevision: "hardware_revision",
	RoleFirmwareRevision: "firmware_revision",
	RoleManufacturer:     "manufacturer",
	RoleMachineType:      "machine_type",
	RoleGeneralStatus:    "general_status",
	RoleAdditionalStatus: "additional_status",
	RoleEndOfWorkout:     "end_of_workout",
}

func (r CharacteristicRole) String() string { return roleNames[r] }

// Profile is the immutable registry of service and characteristic
// identifiers a session is constructed with. It is configuration, not
// process-wide state: tests inject reduced profiles.
type Profile struct {
	AdvertisedService  string
	InformationService string
	RowingService      string

	rolesByUUID map[string]CharacteristicRole
	uuidsByRole map[CharacteristicRole]string

	// mandatoryReads is the ordered list of identity roles that must all
	// resolve before a session becomes ready.
	mandatoryReads []CharacteristicRole
}

// DefaultProfile returns the profile matching the machine's firmware.
func DefaultProfile() *Profile {
	p := &Profile{
		AdvertisedService:  AdvertisedServiceUUID,
		InformationService: InformationServiceUUID,
		RowingService:      RowingServiceUUID,
		mandatoryReads: []CharacteristicRole{
			RoleModelNumber,
			RoleSerialNumber,
			RoleHardwareRevision,
			RoleFirmwareRevision,
			RoleManufacturer,
			RoleMachineType,
		},
	}
	p.uuidsByRole = map[CharacteristicRole]string{
		RoleModelNumber:      NormalizeUUID(CharModelNumberUUID),
		RoleSerialNumber:     NormalizeUUID(CharSerialNumberUUID),
		RoleHardwareRevision: NormalizeUUID(CharHardwareRevisionUUID),
		RoleFirmwareRevision: NormalizeUUID(CharFirmwareRevisionUUID),
		RoleManufacturer:     NormalizeUUID(CharManufacturerUUID),
		RoleMachineType:      NormalizeUUID(CharMachineTypeUUID),
		RoleGeneralStatus:    NormalizeUUID(CharGeneralStatusUUID),
		RoleAdditionalStatus: NormalizeUUID(CharAdditionalStatusUUID),
		RoleEndOfWorkout:     NormalizeUUID(CharEndOfWorkoutUUID),
	}
	p.rolesByUUID = make(map[string]CharacteristicRole, len(p.uuidsByRole))
	for role, uuid := range p.uuidsByRole {
		p.rolesByUUID[uuid] = role
	}
	return p
}

// Role resolves a characteristic UUID to its role, RoleUnknown if the
// characteristic is not part of the profile.
func (p *Profile) Role(characteristicUUID string) CharacteristicRole {
	return p.rolesByUUID[NormalizeUUID(characteristicUUID)]
}

// UUID returns the normalized characteristic UUID for a role, empty if the
// role is not part of the profile.
func (p *Profile) UUID(role CharacteristicRole) string {
	return p.uuidsByRole[role]
}

// MandatoryReads returns the identity roles that must resolve before a
// session is ready. The returned slice must not be mutated.
func (p *Profile) MandatoryReads() []CharacteristicRole {
	return p.mandatoryReads
}

// StreamRole maps a telemetry stream to the role of the characteristic
// that carries it.
func StreamRole(stream telemetry.Stream) CharacteristicRole {
	switch stream {
	case telemetry.StreamGeneralStatus:
		return RoleGeneralStatus
	case telemetry.StreamAdditionalStatus:
		return RoleAdditionalStatus
	case telemetry.StreamEndOfWorkout:
		return RoleEndOfWorkout
	default:
		return RoleUnknown
	}
}

// RoleStream maps a characteristic role to the telemetry stream it carries
// and reports whether the role carries one at all.
func RoleStream(role CharacteristicRole) (telemetry.Stream, bool) {
	switch role {
	case RoleGeneralStatus:
		return telemetry.StreamGeneralStatus, true
	case RoleAdditionalStatus:
		return telemetry.StreamAdditionalStatus, true
	case RoleEndOfWorkout:
		return telemetry.StreamEndOfWorkout, true
	default:
		return 0, false
	}
}
