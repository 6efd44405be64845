package prices

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// ReadCSV reads a wide price table: a header "date,<asset>,..." followed by
// one row per date. Empty, "NaN" and "null" cells are missing prices.
func ReadCSV(r io.Reader) (RawPanel, error) {
	const op = "prices.ReadCSV"

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return RawPanel{}, domain.DataError(op, "empty csv")
	}
	if err != nil {
		return RawPanel{}, domain.DataError(op, "read header: %v", err)
	}
	if len(header) < 2 {
		return RawPanel{}, domain.DataError(op, "header needs a date column and at least one asset")
	}

	raw := RawPanel{
		Assets:  append([]string(nil), header[1:]...),
		Columns: make([][]float64, len(header)-1),
	}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawPanel{}, domain.DataError(op, "line %d: %v", line, err)
		}
		raw.Dates = append(raw.Dates, record[0])
		for j, cell := range record[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return RawPanel{}, domain.DataError(op, "line %d, asset %q: %v", line, raw.Assets[j], err)
			}
			raw.Columns[j] = append(raw.Columns[j], v)
		}
	}
	return raw, nil
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "", "nan", "null", "na":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
