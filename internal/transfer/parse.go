package transfer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

var ErrUnknownSection = errors.New("sección desconocida en el archivo")

// ParseCSV reads the sectioned CSV layout WriteCSV produces (banner row,
// header row, data rows) back into an import request. Unknown columns are
// ignored so older exports keep importing.
func ParseCSV(r io.Reader) (ImportRequest, error) {
	var req ImportRequest

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var section string
	var header []string

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return req, err
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}

		if len(rec) == 1 && strings.HasPrefix(rec[0], "=== ") {
			name := strings.ToLower(strings.TrimSpace(strings.Trim(rec[0], "= ")))
			switch name {
			case ResourceLeads, ResourceProperties, ResourceEvents:
				section = name
				header = nil
			default:
				return req, ErrUnknownSection
			}
			continue
		}
		if section == "" {
			return req, ErrUnknownSection
		}
		if header == nil {
			header = rec
			continue
		}

		row := rowMap(header, rec)
		switch section {
		case ResourceLeads:
			req.Leads = append(req.Leads, LeadRow{
				Name:       row["nombre"],
				LastName:   row["apellido"],
				Email:      row["email"],
				Phone:      row["telefono"],
				StagePhase: row["estado_fase"],
			})
		case ResourceProperties:
			req.Properties = append(req.Properties, PropertyRow{
				Code:         row["codigo"],
				Title:        row["titulo"],
				Location:     row["ubicacion"],
				Kind:         row["tipo_de_propiedad"],
				Availability: row["disponibilidad"],
				Price:        toFloat(row["precio"]),
				Currency:     row["moneda"],
				Rooms:        toInt(row["ambiente"]),
				Age:          toInt(row["antiguedad"]),
				Bathrooms:    toInt(row["banos"]),
				Surface:      toFloat(row["superficie"]),
				Status:       row["estado"],
			})
		case ResourceEvents:
			req.Events = append(req.Events, EventRow{
				ID:         toUint(row["id"]),
				Type:       row["tipo"],
				StartsAt:   row["fecha_hora"],
				PropertyID: toUintPtr(row["propiedad_id"]),
				ContactID:  toUintPtr(row["contacto_id"]),
				Email:      row["email"],
				Name:       row["nombre"],
				LastName:   row["apellido"],
				Notes:      row["notas"],
			})
		}
	}
	return req, nil
}

// ParseJSON reads the {leads, propiedades, eventos} object WriteJSON-style
// exports produce.
func ParseJSON(r io.Reader) (ImportRequest, error) {
	var req ImportRequest
	err := json.NewDecoder(r).Decode(&req)
	return req, err
}

func rowMap(header, rec []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(rec) {
			m[strings.ToLower(strings.TrimSpace(col))] = strings.TrimSpace(rec[i])
		}
	}
	return m
}

func toFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func toInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func toUint(s string) uint64 {
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}

func toUintPtr(s string) *uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	return &n
}
