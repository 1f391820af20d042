package dataset

import "github.com/m4ck-y/nom024-Airflow/internal/db"

// NationalitiesURL is the DGIS catalog page linking the nationalities file.
const NationalitiesURL = "http://www.dgis.salud.gob.mx/contenidos/intercambio/nacionalidades_gobmx.html"

// Nationalities is the built-in pipeline for the Mexican government
// nationalities catalog.
func Nationalities() Definition {
	return Definition{
		Name:    "nacionalidades",
		PageURL: NationalitiesURL,
		Table:   "nacionalidades",
		Store:   "tmp/nacionalidades.db",
		Policy:  db.PolicyReplace,
		Cadence: Always,
		ColumnMapping: map[string]string{
			"codigo pais":        "codigo_pais",
			"pais":               "pais",
			"clave nacionalidad": "clave_nacionalidad",
		},
		Required:  []string{"codigo_pais", "pais"},
		TitleCase: []string{"pais"},
		PadLeft:   map[string]int{"codigo_pais": 3},
		Patterns:  map[string]string{"codigo_pais": `^\d{3}$`},
		UniqueBy:  []string{"codigo_pais"},
		SortBy:    "codigo_pais",
	}
}
