package locality

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const defaultCategory = "Unknown"

// searchResponse is the upstream postcode search envelope.
// "localities" is an object when there are results and an empty string otherwise.
type searchResponse struct {
	Localities json.RawMessage `json:"localities"`
}

type localitiesBody struct {
	Locality localityList `json:"locality"`
}

// localityList accepts either a single locality object or an array of them.
type localityList []rawLocality

func (l *localityList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*l = nil
		return nil
	}
	switch b[0] {
	case '[':
		var many []rawLocality
		if err := json.Unmarshal(b, &many); err != nil {
			return err
		}
		*l = many
	case '{':
		var one rawLocality
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*l = localityList{one}
	default:
		*l = nil
	}
	return nil
}

type rawLocality struct {
	ID        json.RawMessage `json:"id"`
	Location  json.RawMessage `json:"location"`
	Postcode  json.RawMessage `json:"postcode"`
	State     json.RawMessage `json:"state"`
	Category  json.RawMessage `json:"category"`
	Latitude  json.RawMessage `json:"latitude"`
	Longitude json.RawMessage `json:"longitude"`
}

// decodeSearch turns an upstream body into normalised locations.
func decodeSearch(body []byte) ([]Location, error) {
	var env searchResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &UpstreamFormatError{Err: err}
	}

	raw := bytes.TrimSpace(env.Localities)
	if len(raw) == 0 || raw[0] != '{' {
		return []Location{}, nil
	}
	var lb localitiesBody
	if err := json.Unmarshal(raw, &lb); err != nil {
		return nil, &UpstreamFormatError{Err: err}
	}

	out := make([]Location, 0, len(lb.Locality))
	for i, r := range lb.Locality {
		out = append(out, r.normalize(i))
	}
	return out, nil
}

func (r rawLocality) normalize(index int) Location {
	loc := Location{
		ID:        decodeID(r.ID, index),
		Name:      jsonString(r.Location),
		Postcode:  decodePostcode(r.Postcode),
		State:     jsonString(r.State),
		Category:  jsonString(r.Category),
		Latitude:  jsonNumber(r.Latitude),
		Longitude: jsonNumber(r.Longitude),
	}
	if loc.Category == "" {
		loc.Category = defaultCategory
	}
	return loc
}

func decodeID(b json.RawMessage, index int) ID {
	var id ID
	if len(b) == 0 || json.Unmarshal(b, &id) != nil || id.IsZero() {
		return IntID(int64(index))
	}
	return id
}

func decodePostcode(b json.RawMessage) string {
	if s := jsonString(b); s != "" {
		return s
	}
	var n json.Number
	if len(b) == 0 || b[0] == '"' || json.Unmarshal(b, &n) != nil {
		return ""
	}
	if v, err := n.Int64(); err == nil && v >= 0 {
		return fmt.Sprintf("%04d", v)
	}
	return n.String()
}

func jsonString(b json.RawMessage) string {
	var s string
	if len(b) == 0 || json.Unmarshal(b, &s) != nil {
		return ""
	}
	return s
}

func jsonNumber(b json.RawMessage) *float64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || (b[0] != '-' && (b[0] < '0' || b[0] > '9')) {
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return nil
	}
	return &v
}
