package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
)

// loadCatalogFile reads recipes from a JSON array of
// {"id","title","nutrients"} objects or from a CSV file whose header names a
// title column, an optional id column and one column per nutrient
func loadCatalogFile(path string) ([]inbound.RecipeCommand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCatalogCSV(f)
	}
	var cmds []inbound.RecipeCommand
	if err := json.NewDecoder(f).Decode(&cmds); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cmds, nil
}

func readCatalogCSV(r io.Reader) ([]inbound.RecipeCommand, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	titleCol, idCol := -1, -1
	nutrientCols := make(map[int]string)
	for i, name := range header {
		switch key := strings.ToLower(strings.TrimSpace(name)); key {
		case "title", "name":
			titleCol = i
		case "id":
			idCol = i
		default:
			n, err := nutrition.ParseNutrient(key)
			if err != nil {
				return nil, fmt.Errorf("csv column %d: %w", i+1, err)
			}
			nutrientCols[i] = n.String()
		}
	}
	if titleCol < 0 {
		return nil, errors.New("csv header has no title column")
	}

	var cmds []inbound.RecipeCommand
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		cmd := inbound.RecipeCommand{
			Title:     record[titleCol],
			Nutrients: make(map[string]float64, len(nutrientCols)),
		}
		if idCol >= 0 && strings.TrimSpace(record[idCol]) != "" {
			id, err := uuid.Parse(strings.TrimSpace(record[idCol]))
			if err != nil {
				return nil, fmt.Errorf("csv line %d: invalid id: %w", line, err)
			}
			cmd.ID = id
		}
		for col, name := range nutrientCols {
			cell := strings.TrimSpace(record[col])
			if cell == "" {
				continue
			}
			amount, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: %s: %w", line, name, err)
			}
			cmd.Nutrients[name] = amount
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
