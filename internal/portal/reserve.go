package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/marchkov/internal/shuttle"
	"go.uber.org/zap"
)

// Placeholder values the portal hands back when it does not know the rider.
// They never overwrite a cached real profile.
const (
	PlaceholderName       = "马池口🐮🐴"
	PlaceholderDepartment = "这个需要你自己衡量！"
)

// QRPayload is the opaque boarding code. The engine never decodes it, only
// obtains and forwards it.
type QRPayload struct {
	Code   string
	IsTemp bool
}

// ReservationSummary describes the ride the QR code belongs to.
type ReservationSummary struct {
	CreatorName  string
	Department   string
	ResourceName string
	StartTime    string
	IsTemp       bool
}

// Profile is the caller's cached rider identity, used when the portal
// answers with placeholders or omits the fields.
type Profile struct {
	Name       string
	Department string
}

func (p Profile) merge(name, department string) Profile {
	out := p
	if name != "" && (name != PlaceholderName || out.Name == "") {
		out.Name = name
	}
	if department != "" && (department != PlaceholderDepartment || out.Department == "") {
		out.Department = department
	}
	return out
}

// Outcome of a reservation attempt: the usable QR payload plus the summary
// shown alongside it.
type Outcome struct {
	QR      QRPayload
	Summary ReservationSummary
	Profile Profile
}

type launchItem struct {
	Date          string `json:"date"`
	Period        string `json:"period"`
	SubResourceID int    `json:"sub_resource_id"`
}

// Reserve executes the reservation workflow for the selected bus.
//
// Temporary selections fetch a "ride now" code directly. Scheduled ones
// launch the reservation, list the current bookings, match the one for the
// requested direction, and then fetch the boarding QR code of every pending
// booking, keeping the last code that belongs to the requested direction.
// Sub-steps are not retried; the first failing step aborts the attempt.
// A reservation already launched is never rolled back on later failure or
// cancellation; that remote state is left as-is.
func (s *Session) Reserve(ctx context.Context, sel shuttle.SelectionResult, today time.Time, cached Profile, progress Progress) (*Outcome, error) {
	if sel.IsTemp {
		return s.reserveTemp(ctx, sel, cached, progress)
	}
	return s.reserveScheduled(ctx, sel, today, cached, progress)
}

func (s *Session) reserveTemp(ctx context.Context, sel shuttle.SelectionResult, cached Profile, progress Progress) (*Outcome, error) {
	q := url.Values{
		"type":        {"1"},
		"resource_id": {strconv.Itoa(sel.ResourceID)},
		"text":        {sel.StartTime},
	}
	status, body, err := s.get(ctx, s.c.wprocBase+"/site/reservation/get-sign-qrcode", q)
	if err != nil {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "获取临时码失败", Err: err}
	}
	if !ok(status) {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: fmt.Sprintf("获取临时码失败（%d）", status)}
	}
	var qr qrCodeData
	if err := decodeEnvelope(body, &qr); err != nil {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "临时码响应无法解析", Err: err}
	}
	if qr.Code == "" {
		return nil, &ReserveError{Kind: ReserveQRNotFound, Msg: "找不到临时码"}
	}

	name, department := splitCreatorName(qr.Name)
	profile := cached.merge(name, department)
	progress.Emit("成功获取临时码")

	return &Outcome{
		QR: QRPayload{Code: qr.Code, IsTemp: true},
		Summary: ReservationSummary{
			CreatorName:  profile.Name,
			Department:   profile.Department,
			ResourceName: sel.ResourceName,
			StartTime:    sel.StartTime,
			IsTemp:       true,
		},
		Profile: profile,
	}, nil
}

func (s *Session) reserveScheduled(ctx context.Context, sel shuttle.SelectionResult, today time.Time, cached Profile, progress Progress) (*Outcome, error) {
	dir, _ := shuttle.DirectionOf(sel.ResourceID)

	payload, err := json.Marshal([]launchItem{{
		Date:   today.Format("2006-01-02"),
		Period: strconv.Itoa(sel.PeriodID),
	}})
	if err != nil {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "预约请求无法编码", Err: err}
	}
	form := url.Values{
		"resource_id": {strconv.Itoa(sel.ResourceID)},
		"data":        {string(payload)},
	}
	status, body, err := s.postForm(ctx, s.c.wprocBase+"/site/reservation/launch", form)
	if err != nil {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "预约班车失败", Err: err}
	}
	if !ok(status) || decodeEnvelope(body, nil) != nil {
		return nil, &ReserveError{Kind: ReserveLaunchRejected, Msg: fmt.Sprintf("预约班车被拒绝（%d）", status)}
	}
	progress.Emit("预约班车成功")

	q := url.Values{
		"p":         {"1"},
		"page_size": {"10"},
		"status":    {"2"},
		"sort_time": {"true"},
		"sort":      {"asc"},
	}
	status, body, err = s.get(ctx, s.c.wprocBase+"/site/reservation/my-list-time", q)
	if err != nil {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "获取已约班车失败", Err: err}
	}
	if !ok(status) {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: fmt.Sprintf("获取已约班车失败（%d）", status)}
	}
	var list myListData
	if err := decodeEnvelope(body, &list); err != nil {
		return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "已约班车响应无法解析", Err: err}
	}
	progress.Emit(fmt.Sprintf("获取已约班车信息成功，共 %d 条", len(list.Data)))

	summary, profile, matched := matchReservation(list.Data, dir, cached)
	if !matched {
		return nil, &ReserveError{Kind: ReserveNoMatchingReservation, Msg: "找不到匹配方向的预约"}
	}

	// The QR code of every pending reservation is fetched; the payload kept
	// is the last code whose reservation belongs to the requested direction.
	var (
		code    string
		fetched int
	)
	for i, row := range list.Data {
		if ctx.Err() != nil {
			return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "乘车码获取被中断", Err: ctx.Err()}
		}
		appID, err := intPart(row.ID)
		if err != nil {
			return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "预约编号无法解析", Err: err}
		}
		dataID, err := intPart(row.HallAppointmentDataID)
		if err != nil {
			return nil, &ReserveError{Kind: ReserveNetworkError, Msg: "预约数据编号无法解析", Err: err}
		}
		progress.Emit(fmt.Sprintf("正在处理第 %d 个预约", i+1))

		qr, err := s.fetchSignQR(ctx, appID, dataID)
		if err != nil {
			// Per-item failures only cost that item's code.
			s.c.log.Warn("sign qrcode fetch failed",
				zap.Int64("app_id", appID), zap.Int64("data_id", dataID), zap.Error(err))
			continue
		}
		if qr == "" {
			continue
		}
		fetched++
		rid, err := intPart(row.ResourceID)
		if err != nil {
			continue
		}
		if d, known := shuttle.DirectionOf(int(rid)); known && d == dir {
			code = qr
		}
	}
	if code == "" {
		return nil, &ReserveError{Kind: ReserveQRNotFound, Msg: "找不到乘车码，可能时间太早还无法查看"}
	}
	progress.Emit(fmt.Sprintf("乘车码获取成功（共 %d 个）", fetched))

	return &Outcome{
		QR:      QRPayload{Code: code},
		Summary: summary,
		Profile: profile,
	}, nil
}

func (s *Session) fetchSignQR(ctx context.Context, appID, dataID int64) (string, error) {
	q := url.Values{
		"type":                     {"0"},
		"id":                       {strconv.FormatInt(appID, 10)},
		"hall_appointment_data_id": {strconv.FormatInt(dataID, 10)},
	}
	status, body, err := s.get(ctx, s.c.wprocBase+"/site/reservation/get-sign-qrcode", q)
	if err != nil {
		return "", err
	}
	if !ok(status) {
		return "", fmt.Errorf("qrcode status %d", status)
	}
	var qr qrCodeData
	if err := decodeEnvelope(body, &qr); err != nil {
		return "", err
	}
	return qr.Code, nil
}

// matchReservation finds the first booking whose resource belongs to the
// requested direction and builds its summary, merging creator fields over the
// cached profile.
func matchReservation(rows []reservationRow, dir shuttle.Direction, cached Profile) (ReservationSummary, Profile, bool) {
	for _, row := range rows {
		rid, err := intPart(row.ResourceID)
		if err != nil {
			continue
		}
		d, known := shuttle.DirectionOf(int(rid))
		if !known || d != dir {
			continue
		}
		profile := cached.merge(row.CreatorName, row.CreatorDepart)
		start := row.firstPeriodText()
		if start == "" {
			start = "未知时间"
		}
		return ReservationSummary{
			CreatorName:  profile.Name,
			Department:   profile.Department,
			ResourceName: row.ResourceName,
			StartTime:    start,
		}, profile, true
	}
	return ReservationSummary{}, cached, false
}

// splitCreatorName takes the multi-line name field of a temporary code:
// line 0 is the display name, line 2 (when present) the department.
func splitCreatorName(full string) (name, department string) {
	if full == "" {
		return "", ""
	}
	lines := strings.Split(full, "\r\n")
	name = lines[0]
	if len(lines) > 2 {
		department = lines[2]
	}
	return name, department
}
