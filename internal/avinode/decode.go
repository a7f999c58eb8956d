package avinode

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/brokerops/charterlink/pkg/logger"
)

// DecodeRFQEnvelope turns one /rfqs response body into a flat RFQ list.
// The marketplace has shipped several envelope shapes for the same
// endpoint; they are probed in a fixed priority order: top-level array,
// nested `data`, nested `rfqs`, then a single object carrying an RFQ id.
// An unrecognized shape yields a warning and an empty list, never an
// error.
func DecodeRFQEnvelope(data []byte, log *logger.Logger) ([]RawRFQ, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var rfqs []RawRFQ
		if err := json.Unmarshal(data, &rfqs); err != nil {
			return nil, fmt.Errorf("decode rfq array: %w", err)
		}
		return rfqs, nil
	}

	var probe struct {
		Data  json.RawMessage `json:"data"`
		RFQs  json.RawMessage `json:"rfqs"`
		ID    FlexID          `json:"id"`
		RFQID FlexID          `json:"rfq_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode rfq envelope: %w", err)
	}

	if len(probe.Data) > 0 && !bytes.Equal(probe.Data, []byte("null")) {
		return DecodeRFQEnvelope(probe.Data, log)
	}

	if len(probe.RFQs) > 0 && !bytes.Equal(probe.RFQs, []byte("null")) {
		var rfqs []RawRFQ
		if err := json.Unmarshal(probe.RFQs, &rfqs); err != nil {
			return nil, fmt.Errorf("decode nested rfqs: %w", err)
		}
		return rfqs, nil
	}

	if probe.ID != "" || probe.RFQID != "" {
		var rfq RawRFQ
		if err := json.Unmarshal(data, &rfq); err != nil {
			return nil, fmt.Errorf("decode single rfq: %w", err)
		}
		return []RawRFQ{rfq}, nil
	}

	if log != nil {
		log.Warn("unrecognized rfq envelope shape, returning no rfqs")
	}
	return nil, nil
}

// decodeQuoteEnvelope handles a /quotes/{id} body, which arrives either
// flat or nested under `data`.
func decodeQuoteEnvelope(data []byte) (*RawQuote, error) {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode quote envelope: %w", err)
	}
	if len(probe.Data) > 0 && !bytes.Equal(probe.Data, []byte("null")) {
		data = probe.Data
	}
	var quote RawQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return &quote, nil
}
