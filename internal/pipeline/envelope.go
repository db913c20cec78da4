package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/joseph-ayodele/invoice-extract/constants"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
)

// Envelope is the response shape returned to callers of the service and CLI.
type Envelope struct {
	Success  bool           `json:"success"`
	Text     string         `json:"text,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Stage    string         `json:"stage"`
	Progress int            `json:"progress"`
	Metadata Metadata       `json:"metadata"`
	Error    string         `json:"error,omitempty"`
}

type Metadata struct {
	FileName       string `json:"fileName"`
	FileSize       int64  `json:"fileSize"`
	ProcessedWith  string `json:"processedWith"`
	ProcessingTime string `json:"processingTime"`
	DocumentID     string `json:"documentId,omitempty"`
	Status         string `json:"status,omitempty"`
	Deduplicated   bool   `json:"deduplicated,omitempty"`
}

// BuildEnvelope wraps a successful result.
func BuildEnvelope(res *Result, fileName string, fileSize int64) (Envelope, error) {
	data, err := DocumentData(res.Fields)
	if err != nil {
		return Envelope{}, err
	}
	meta := Metadata{
		FileName:       fileName,
		FileSize:       fileSize,
		ProcessedWith:  constants.ProcessedWith,
		ProcessingTime: formatDuration(res.Duration),
		Status:         string(res.Status),
		Deduplicated:   res.Deduplicated,
	}
	if res.Document != nil {
		meta.DocumentID = res.Document.ID.String()
	}
	return Envelope{
		Success:  true,
		Text:     res.Text,
		Data:     data,
		Stage:    constants.StageComplete,
		Progress: 100,
		Metadata: meta,
	}, nil
}

// ErrorEnvelope reports a failed run.
func ErrorEnvelope(err error, fileName string, fileSize int64, elapsed time.Duration) Envelope {
	return Envelope{
		Success:  false,
		Stage:    constants.StageError,
		Progress: 100,
		Metadata: Metadata{
			FileName:       fileName,
			FileSize:       fileSize,
			ProcessedWith:  constants.ProcessedWith,
			ProcessingTime: formatDuration(elapsed),
		},
		Error: err.Error(),
	}
}

// DocumentData flattens a document to its JSON keys and adds the older
// vendor/total/invoiceNumber keys some clients still read.
func DocumentData(doc extract.ExtractedDocument) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	data["vendor"] = doc.SupplierName
	data["total"] = strconv.FormatFloat(doc.TotalAmount, 'f', -1, 64)
	data["invoiceNumber"] = doc.InvoiceNumber
	return data, nil
}

// AsMap renders the envelope as generic JSON values, the form protobuf Structs accept.
func (e Envelope) AsMap() (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
