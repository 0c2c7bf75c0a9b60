package entity

import "fmt"

// Quantities cantidades de aves por categoría (hembras, machos, mixtas/sin sexar).
// En un registro de inventario nunca son negativas; en un delta de historial sí pueden serlo.
type Quantities struct {
	Females int `json:"females"`
	Males   int `json:"males"`
	Mixed   int `json:"mixed"`
}

// Total suma las tres categorías.
func (q Quantities) Total() int {
	return q.Females + q.Males + q.Mixed
}

// Add devuelve q + o.
func (q Quantities) Add(o Quantities) Quantities {
	return Quantities{Females: q.Females + o.Females, Males: q.Males + o.Males, Mixed: q.Mixed + o.Mixed}
}

// Sub devuelve q - o.
func (q Quantities) Sub(o Quantities) Quantities {
	return Quantities{Females: q.Females - o.Females, Males: q.Males - o.Males, Mixed: q.Mixed - o.Mixed}
}

// IsZero indica si todas las categorías son cero.
func (q Quantities) IsZero() bool {
	return q.Females == 0 && q.Males == 0 && q.Mixed == 0
}

// HasNegative indica si alguna categoría es negativa.
func (q Quantities) HasNegative() bool {
	return q.Females < 0 || q.Males < 0 || q.Mixed < 0
}

// Covers indica si q alcanza para descontar req en cada categoría.
func (q Quantities) Covers(req Quantities) bool {
	return q.Females >= req.Females && q.Males >= req.Males && q.Mixed >= req.Mixed
}

// Shortages describe, por categoría, lo que falta para cubrir req.
// Devuelve nil si q cubre req.
func (q Quantities) Shortages(req Quantities) []string {
	var out []string
	if req.Females > q.Females {
		out = append(out, fmt.Sprintf("No hay suficientes hembras en origen: solicitadas %d, disponibles %d", req.Females, q.Females))
	}
	if req.Males > q.Males {
		out = append(out, fmt.Sprintf("No hay suficientes machos en origen: solicitados %d, disponibles %d", req.Males, q.Males))
	}
	if req.Mixed > q.Mixed {
		out = append(out, fmt.Sprintf("No hay suficientes aves mixtas en origen: solicitadas %d, disponibles %d", req.Mixed, q.Mixed))
	}
	return out
}

// Validate revisa que una cantidad solicitada sea no negativa y con al menos una categoría > 0.
func (q Quantities) Validate() []string {
	var out []string
	if q.Females < 0 {
		out = append(out, "la cantidad de hembras no puede ser negativa")
	}
	if q.Males < 0 {
		out = append(out, "la cantidad de machos no puede ser negativa")
	}
	if q.Mixed < 0 {
		out = append(out, "la cantidad de aves mixtas no puede ser negativa")
	}
	if len(out) == 0 && q.IsZero() {
		out = append(out, "debe indicar al menos una cantidad mayor a cero")
	}
	return out
}

func (q Quantities) String() string {
	return fmt.Sprintf("(H=%d, M=%d, X=%d)", q.Females, q.Males, q.Mixed)
}
