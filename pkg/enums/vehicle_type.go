package enums

import "fmt"

// VehicleType classifies fleet vehicles.
type VehicleType string

const (
	VehicleBike  VehicleType = "BIKE"
	VehicleVan   VehicleType = "VAN"
	VehicleTruck VehicleType = "TRUCK"
	VehicleTempo VehicleType = "TEMPO"
)

var validVehicleTypes = []VehicleType{
	VehicleBike,
	VehicleVan,
	VehicleTruck,
	VehicleTempo,
}

// IsValid reports whether the value is a known VehicleType.
func (v VehicleType) IsValid() bool {
	for _, candidate := range validVehicleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleType converts raw input into a VehicleType.
func ParseVehicleType(value string) (VehicleType, error) {
	for _, candidate := range validVehicleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle type %q", value)
}
