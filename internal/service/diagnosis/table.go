// Package diagnosis maps detector output to disease records.
package diagnosis

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"leafdoctor/internal/model"
)

const (
	TableMinimal  = "minimal"
	TableExtended = "extended"

	// HealthyClass is the detector class index of a healthy leaf in both built-in tables.
	HealthyClass = 9

	notFound = "not found"
)

// Placeholder is resolved for class indices missing from the table.
var Placeholder = model.DiseaseRecord{ID: 0, Name: notFound, Treatment: notFound}

// Table is an immutable mapping from detector class index to a disease record.
type Table struct {
	name         string
	records      map[int]model.DiseaseRecord
	healthyClass int
}

// Minimal returns the four-entry table: three diseases and the healthy class.
func Minimal() *Table {
	return &Table{
		name: TableMinimal,
		records: map[int]model.DiseaseRecord{
			0: {ID: 1, Name: "Early Blight", Treatment: treatmentEarlyBlight},
			1: {ID: 2, Name: "Late Blight", Treatment: treatmentLateBlight},
			2: {ID: 3, Name: "Septoria Leaf Spot", Treatment: treatmentSeptoria},
			9: {ID: 10, Name: "Healthy", Treatment: treatmentHealthy},
		},
		healthyClass: HealthyClass,
	}
}

// Extended returns the full ten-class tomato table.
func Extended() *Table {
	return &Table{
		name: TableExtended,
		records: map[int]model.DiseaseRecord{
			0: {ID: 1, Name: "Bacterial Spot", Treatment: treatmentBacterialSpot},
			1: {ID: 2, Name: "Early Blight", Treatment: treatmentEarlyBlight},
			2: {ID: 3, Name: "Late Blight", Treatment: treatmentLateBlight},
			3: {ID: 4, Name: "Leaf Mold", Treatment: treatmentLeafMold},
			4: {ID: 5, Name: "Septoria Leaf Spot", Treatment: treatmentSeptoria},
			5: {ID: 6, Name: "Spider Mites", Treatment: treatmentSpiderMites},
			6: {ID: 7, Name: "Target Spot", Treatment: treatmentTargetSpot},
			7: {ID: 8, Name: "Tomato Yellow Leaf Curl Virus", Treatment: treatmentYellowLeafCurl},
			8: {ID: 9, Name: "Tomato Mosaic Virus", Treatment: treatmentMosaic},
			9: {ID: 10, Name: "Healthy", Treatment: treatmentHealthy},
		},
		healthyClass: HealthyClass,
	}
}

// tableFile is the on-disk format accepted by LoadTable.
type tableFile struct {
	HealthyClass int                            `json:"healthy_class"`
	Diseases     map[string]model.DiseaseRecord `json:"diseases"`
}

// LoadTable returns a built-in table by name or reads one from a JSON file.
func LoadTable(source string) (*Table, error) {
	switch source {
	case "", TableExtended:
		return Extended(), nil
	case TableMinimal:
		return Minimal(), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read disease table: %w", err)
	}

	var file tableFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse disease table: %w", err)
	}

	records := make(map[int]model.DiseaseRecord, len(file.Diseases))
	for key, record := range file.Diseases {
		classIndex, err := strconv.Atoi(key)
		if err != nil || classIndex < 0 {
			return nil, fmt.Errorf("invalid class index %q in disease table", key)
		}
		records[classIndex] = record
	}

	if _, ok := records[file.HealthyClass]; !ok {
		return nil, fmt.Errorf("disease table has no entry for healthy class %d", file.HealthyClass)
	}

	return &Table{name: source, records: records, healthyClass: file.HealthyClass}, nil
}

// Name returns the table name or the file it was loaded from.
func (t *Table) Name() string {
	return t.name
}

// Len returns the number of populated class indices.
func (t *Table) Len() int {
	return len(t.records)
}

// Lookup resolves a class index. Unknown indices resolve to Placeholder.
func (t *Table) Lookup(classIndex int) model.DiseaseRecord {
	if record, ok := t.records[classIndex]; ok {
		return record
	}
	return Placeholder
}

// Healthy returns the record used when nothing was detected.
func (t *Table) Healthy() model.DiseaseRecord {
	return t.records[t.healthyClass]
}

// ClassIndices returns the populated class indices in ascending order.
func (t *Table) ClassIndices() []int {
	indices := make([]int, 0, len(t.records))
	for classIndex := range t.records {
		indices = append(indices, classIndex)
	}
	sort.Ints(indices)
	return indices
}
