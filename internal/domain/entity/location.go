package entity

import "strings"

// Location ubicación física: granja, opcionalmente núcleo y galpón.
// NucleusID y ShedID vacíos significan "no aplica" (NULL en base de datos).
type Location struct {
	FarmID    string `json:"farm_id"`
	NucleusID string `json:"nucleus_id,omitempty"`
	ShedID    string `json:"shed_id,omitempty"`
}

// Normalize recorta espacios de los tres componentes.
func (l Location) Normalize() Location {
	return Location{
		FarmID:    strings.TrimSpace(l.FarmID),
		NucleusID: strings.TrimSpace(l.NucleusID),
		ShedID:    strings.TrimSpace(l.ShedID),
	}
}

// IsZero indica que no se indicó granja.
func (l Location) IsZero() bool {
	return strings.TrimSpace(l.FarmID) == ""
}

// Equal compara dos ubicaciones normalizadas.
func (l Location) Equal(o Location) bool {
	return l.Key() == o.Key()
}

// Key representación canónica "granja/núcleo/galpón".
func (l Location) Key() string {
	n := l.Normalize()
	return n.FarmID + "/" + n.NucleusID + "/" + n.ShedID
}

func (l Location) String() string {
	n := l.Normalize()
	s := "granja " + n.FarmID
	if n.NucleusID != "" {
		s += ", núcleo " + n.NucleusID
	}
	if n.ShedID != "" {
		s += ", galpón " + n.ShedID
	}
	return s
}
