package domain

// CargoType is a read-only summary of a cargo type owned by the cargo
// service. Per-unit factors convert an allocation quantity into mass and
// volume deltas.
type CargoType struct {
	ID            string
	Name          string
	MassPerUnit   float64 // kg, > 0
	VolumePerUnit float64 // m3, > 0
}

func (c *CargoType) MassFor(quantity int) float64 {
	return float64(quantity) * c.MassPerUnit
}

func (c *CargoType) VolumeFor(quantity int) float64 {
	return float64(quantity) * c.VolumePerUnit
}
