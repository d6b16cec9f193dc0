package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errBadSubject = errors.New("subject must be a resident id or an {id, name} object")

// Identity is the canonical resident identity carried by a token.
type Identity struct {
	ResidentID int64
	Name       string
}

// subjectClaim accepts every subject shape ever issued for a resident:
// 42, "42" and {"id": 42, "name": "Ann"}. It always encodes as the decimal string.
type subjectClaim struct {
	id   int64
	name string
	set  bool
}

func (s subjectClaim) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(s.id, 10))
}

func (s *subjectClaim) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = subjectClaim{}
		return nil
	}

	if data[0] == '{' {
		var obj struct {
			ID   json.RawMessage `json:"id"`
			Name string          `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return errBadSubject
		}
		id, err := parseResidentID(obj.ID)
		if err != nil {
			return err
		}
		*s = subjectClaim{id: id, name: obj.Name, set: true}
		return nil
	}

	id, err := parseResidentID(data)
	if err != nil {
		return err
	}
	*s = subjectClaim{id: id, set: true}
	return nil
}

func parseResidentID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, errBadSubject
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, errBadSubject
		}
	} else {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return 0, errBadSubject
		}
		text = num.String()
	}

	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadSubject
	}
	return id, nil
}
