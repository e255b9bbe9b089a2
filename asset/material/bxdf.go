package material

// BxdfType represents the surface scattering models supported by the renderer.
type BxdfType uint8

const (
	BxdfDiffuseReflection BxdfType = iota
	BxdfDiffuseTransmission
	BxdfSpecularReflection
	BxdfSpecularTransmission
	BxdfGlass
	BxdfPlastic
	BxdfMicrofacetReflection
	bxdfInvalid
)

var bxdfNames = [...]string{
	BxdfDiffuseReflection:    "diffuse",
	BxdfDiffuseTransmission:  "translucent",
	BxdfSpecularReflection:   "mirror",
	BxdfSpecularTransmission: "transmissive",
	BxdfGlass:                "glass",
	BxdfPlastic:              "plastic",
	BxdfMicrofacetReflection: "microfacet",
}

// Lookup bxdf type by its name.
func BxdfTypeFromName(name string) (BxdfType, bool) {
	for t, n := range bxdfNames {
		if n == name {
			return BxdfType(t), true
		}
	}

	return bxdfInvalid, false
}

// Returns true if the bxdf scatters along a single direction (delta
// distribution). Such surfaces cannot be sampled by direct light sampling.
func (t BxdfType) IsSpecular() bool {
	switch t {
	case BxdfSpecularReflection, BxdfSpecularTransmission, BxdfGlass:
		return true
	}
	return false
}

// Returns true if the bxdf may scatter light below the surface.
func (t BxdfType) IsTransmissive() bool {
	switch t {
	case BxdfDiffuseTransmission, BxdfSpecularTransmission, BxdfGlass:
		return true
	}
	return false
}

func (t BxdfType) String() string {
	if t < bxdfInvalid {
		return bxdfNames[t]
	}
	return "invalid"
}
