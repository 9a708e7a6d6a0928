package domain

// ---------------- Operadores ----------------

type Operator string

const (
	OpEq    Operator = "="
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpLike  Operator = "LIKE"
	OpILike Operator = "ILIKE"
	OpIn    Operator = "IN" // Value debe ser un slice
)

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// ---------------- Criteria interface ----------------

// Criteria es un predicado neutral. Cada adapter de almacenamiento lo traduce
// a su propio lenguaje (SQL, bson, evaluación en memoria).
type Criteria interface {
	ToConditions() []Criterion
}

// ---------------- Criterion ----------------

// Criterion describe una condición hoja: campo, operador y valor.
type Criterion struct {
	Field string
	Op    Operator
	Value interface{}
}

func (c Criterion) ToConditions() []Criterion {
	return []Criterion{c}
}

// ---------------- Composite Criteria ----------------

// CompositeCriteria agrupa criterios bajo un operador lógico. Los traductores
// deben recorrer el árbol respetando Operator; ToConditions solo es válido
// para grupos AND.
type CompositeCriteria struct {
	Operator  LogicalOperator
	Criterias []Criteria
}

func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		all = append(all, crit.ToConditions()...)
	}
	return all
}

// ---------------- Helpers ----------------

// And crea un grupo AND. Ignora miembros nil y devuelve el único miembro
// cuando solo queda uno. Sin miembros devuelve nil.
func And(criterias ...Criteria) Criteria {
	return group(OpAnd, criterias)
}

// Or crea un grupo OR con las mismas reglas que And.
func Or(criterias ...Criteria) Criteria {
	return group(OpOr, criterias)
}

func group(op LogicalOperator, criterias []Criteria) Criteria {
	kept := make([]Criteria, 0, len(criterias))
	for _, c := range criterias {
		if c == nil {
			continue
		}
		if comp, ok := c.(CompositeCriteria); ok && len(comp.Criterias) == 0 {
			continue
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return CompositeCriteria{Operator: op, Criterias: kept}
}

// Normalize convierte cualquier Criteria a su forma canónica: hojas
// Criterion y grupos CompositeCriteria. Los tipos de dominio propios
// (p.ej. AuthorInCriteria) se expanden como AND de sus condiciones, salvo que
// implementen Expander.
func Normalize(c Criteria) Criteria {
	switch v := c.(type) {
	case nil:
		return nil
	case Criterion:
		return v
	case *Criterion:
		return *v
	case CompositeCriteria:
		children := make([]Criteria, 0, len(v.Criterias))
		for _, child := range v.Criterias {
			if n := Normalize(child); n != nil {
				children = append(children, n)
			}
		}
		return group(v.Operator, children)
	case Expander:
		return Normalize(v.Expand())
	default:
		conds := v.ToConditions()
		children := make([]Criteria, 0, len(conds))
		for _, cond := range conds {
			children = append(children, cond)
		}
		return group(OpAnd, children)
	}
}

// Expander lo implementan los criterios de dominio que no se pueden expresar
// como un AND plano (p.ej. búsqueda de texto sobre varias columnas).
type Expander interface {
	Expand() Criteria
}
