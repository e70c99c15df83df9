package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetops/contractd/internal/server/services"
)

// contractPayload is the wire form of a contract. pdfUrl is derived per
// response and never persisted.
type contractPayload struct {
	ID             string `json:"id"`
	City           string `json:"city"`
	Address        string `json:"address"`
	DriverName     string `json:"driverName"`
	IDNumber       string `json:"idNumber"`
	Birthday       string `json:"birthday"`
	ExtraNotes     string `json:"extraNotes"`
	CreatedBy      string `json:"createdBy"`
	PDFFileID      string `json:"pdfFileId"`
	DocumentStatus string `json:"documentStatus"`
	PDFURL         string `json:"pdfUrl"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// contractInputPayload is the inbound body for create and update.
type contractInputPayload struct {
	City       string `json:"city"`
	Address    string `json:"address"`
	DriverName string `json:"driverName"`
	IDNumber   string `json:"idNumber"`
	Birthday   string `json:"birthday"`
	ExtraNotes string `json:"extraNotes"`
}

func (p *contractInputPayload) toInput() *services.ContractInput {
	return &services.ContractInput{
		City:       p.City,
		Address:    p.Address,
		DriverName: p.DriverName,
		IDNumber:   p.IDNumber,
		Birthday:   p.Birthday,
		ExtraNotes: p.ExtraNotes,
	}
}

func toContractPayload(c *services.ContractWithURL) *contractPayload {
	return &contractPayload{
		ID:             c.Contract.ID,
		City:           c.Contract.City,
		Address:        c.Contract.Address,
		DriverName:     c.Contract.DriverName,
		IDNumber:       c.Contract.IDNumber,
		Birthday:       c.Contract.Birthday,
		ExtraNotes:     c.Contract.ExtraNotes,
		CreatedBy:      c.Contract.CreatedBy,
		PDFFileID:      c.Contract.DocumentRef,
		DocumentStatus: string(c.Contract.DocumentStatus),
		PDFURL:         c.PDFURL,
		CreatedAt:      toISO(c.Contract.CreatedAt),
		UpdatedAt:      toISO(c.Contract.UpdatedAt),
	}
}

// toISO formats a timestamp as ISO-8601 in UTC with millisecond
// precision; the zero time serializes as "".
func toISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
