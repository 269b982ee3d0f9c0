package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Every portal response is a JSON envelope with the payload under "d".
// Malformed JSON or a missing "d" is a hard failure.
type envelope struct {
	E json.Number     `json:"e"`
	M string          `json:"m"`
	D json.RawMessage `json:"d"`
}

var errNoPayload = errors.New("envelope has no d payload")

func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}
	d := strings.TrimSpace(string(env.D))
	if d == "" || d == "null" {
		return errNoPayload
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.D, out); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}

// SSO login response (iaaa/oauthlogin.do).
type ssoResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// Shuttle catalog (site/reservation/list-page). Each resource carries its
// departure slots grouped under "table"; a row's margin is the seat count
// still available.
type listPageData struct {
	List []resourceRow `json:"list"`
}

type resourceRow struct {
	ID    json.Number            `json:"id"`
	Name  string                 `json:"name"`
	Table map[string][]periodRow `json:"table"`
}

type periodRow struct {
	TimeID json.Number `json:"time_id"`
	Yaxis  string      `json:"yaxis"`
	Row    struct {
		Margin int `json:"margin"`
	} `json:"row"`
}

// Reservation listing (site/reservation/my-list-time). Numeric ids arrive
// decimal-suffixed ("123.0"); intPart truncates them deterministically.
type myListData struct {
	Data []reservationRow `json:"data"`
}

type reservationRow struct {
	ID                    json.Number           `json:"id"`
	ResourceID            json.Number           `json:"resource_id"`
	HallAppointmentDataID json.Number           `json:"hall_appointment_data_id"`
	CreatorName           string                `json:"creator_name"`
	CreatorDepart         string                `json:"creator_depart"`
	ResourceName          string                `json:"resource_name"`
	PeriodText            map[string]periodText `json:"period_text"`
	StatusName            string                `json:"status_name"`
	AppointmentTime       string                `json:"appointment_tim"`
	AppointmentSignTime   string                `json:"appointment_sign_time"`
}

type periodText struct {
	Text []string `json:"text"`
}

// firstPeriodText returns the first text item of the first period-text
// sub-map, walking keys in sorted order so the pick is deterministic.
func (r reservationRow) firstPeriodText() string {
	keys := make([]string, 0, len(r.PeriodText))
	for k := range r.PeriodText {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if texts := r.PeriodText[k].Text; len(texts) > 0 {
			return texts[0]
		}
	}
	return ""
}

// QR code payload (site/reservation/get-sign-qrcode). The name field of a
// temporary code is multi-line: line 0 is the rider's display name and, when
// present, line 2 a department string.
type qrCodeData struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func intPart(n json.Number) (int64, error) {
	s := string(n)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return 0, fmt.Errorf("empty numeric id")
	}
	return strconv.ParseInt(s, 10, 64)
}
