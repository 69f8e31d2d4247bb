package locality

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Location is one postal locality as returned by the upstream lookup service.
// Latitude and Longitude are nil when the upstream did not send a numeric value.
type Location struct {
	ID        ID       `json:"id"`
	Name      string   `json:"location"`
	Postcode  string   `json:"postcode"`
	State     string   `json:"state"`
	Category  string   `json:"category"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Position returns the coordinates only when both are present.
func (l Location) Position() (lat, lng float64, ok bool) {
	if l.Latitude == nil || l.Longitude == nil {
		return 0, 0, false
	}
	return *l.Latitude, *l.Longitude, true
}

// ID is either an integer or an opaque string. It round-trips in the form it arrived in.
type ID struct {
	num   int64
	str   string
	isStr bool
}

func IntID(n int64) ID     { return ID{num: n} }
func StringID(s string) ID { return ID{str: s, isStr: true} }

func (id ID) String() string {
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

func (id ID) IsZero() bool {
	if id.isStr {
		return id.str == ""
	}
	return id.num == 0
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return []byte(strconv.FormatInt(id.num, 10)), nil
}

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ID{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*id = StringID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if v, err := n.Int64(); err == nil {
		*id = IntID(v)
		return nil
	}
	*id = StringID(n.String())
	return nil
}

type State struct {
	Code  string `json:"value"`
	Label string `json:"label"`
}

// States lists the eight Australian states and territories.
var States = []State{
	{Code: "NSW", Label: "New South Wales"},
	{Code: "VIC", Label: "Victoria"},
	{Code: "QLD", Label: "Queensland"},
	{Code: "WA", Label: "Western Australia"},
	{Code: "SA", Label: "South Australia"},
	{Code: "TAS", Label: "Tasmania"},
	{Code: "NT", Label: "Northern Territory"},
	{Code: "ACT", Label: "Australian Capital Territory"},
}

func IsStateCode(s string) bool {
	s = strings.TrimSpace(s)
	for _, st := range States {
		if strings.EqualFold(st.Code, s) {
			return true
		}
	}
	return false
}

// StateLabel returns the display label for a state code, or the code itself when unknown.
func StateLabel(code string) string {
	for _, st := range States {
		if strings.EqualFold(st.Code, code) {
			return st.Label
		}
	}
	return code
}
