// Package multiplant sums the monthly values of a set of plants for one year
// and lays them out as the rows of the monthly table.
package multiplant

import (
	"encoding/json"
	"strings"
)

// Alert texts shown when the plant set cannot be read.
const (
	InvalidPlantsMessage = `Errore: data-impianti non valido. Usa formato JSON array, es: ["ponte_giurino", "san_teodoro"]`
	MissingPlantsMessage = `Errore: specificare gli impianti tramite data-impianti="[...]" su #tabella_corrispettivi`
	LoadErrorMessage     = "Errore durante il caricamento dei dati. Controlla la console."
)

// ConfigError is a page configuration problem reported to the user as an
// alert.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParsePlantSet reads the plant list from the data-impianti JSON array, or
// falls back to the single data-nickname.
func ParsePlantSet(impianti, nickname string) ([]string, error) {
	if strings.TrimSpace(impianti) != "" {
		var plants []string
		if err := json.Unmarshal([]byte(impianti), &plants); err != nil {
			return nil, &ConfigError{Message: InvalidPlantsMessage, Err: err}
		}
		if len(plants) == 0 {
			return nil, &ConfigError{Message: InvalidPlantsMessage}
		}
		return plants, nil
	}
	if nickname != "" {
		return []string{nickname}, nil
	}
	return nil, &ConfigError{Message: MissingPlantsMessage}
}
