package model

// DiseaseRecord is a single entry of the disease table.
type DiseaseRecord struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Treatment string `json:"treatment"`
}
