package portal

import (
	"context"
	"fmt"
	"net/url"

	"github.com/example/marchkov/internal/shuttle"
)

// RideHistory fetches every past reservation record, unpaginated (the portal
// treats page_size=0 as "all"). The returned slice replaces any previous
// snapshot wholesale; records are never mutated.
func (s *Session) RideHistory(ctx context.Context) ([]shuttle.RideRecord, error) {
	q := url.Values{
		"p":         {"1"},
		"page_size": {"0"},
		"status":    {"0"},
		"sort_time": {"true"},
		"sort":      {"desc"},
	}
	status, body, err := s.get(ctx, s.c.wprocBase+"/site/reservation/my-list-time", q)
	if err != nil {
		return nil, &FetchError{Kind: FetchNetworkError, Msg: "获取乘车历史失败", Err: err}
	}
	if !ok(status) {
		return nil, &FetchError{Kind: FetchNetworkError, Msg: fmt.Sprintf("获取乘车历史失败（%d）", status)}
	}
	var list myListData
	if err := decodeEnvelope(body, &list); err != nil {
		return nil, &FetchError{Kind: FetchMalformedResponse, Msg: "乘车历史响应无法解析", Err: err}
	}

	records := make([]shuttle.RideRecord, 0, len(list.Data))
	for _, row := range list.Data {
		appID, err := intPart(row.ID)
		if err != nil {
			return nil, &FetchError{Kind: FetchMalformedResponse, Msg: "历史预约编号无法解析", Err: err}
		}
		// Old records may omit the appointment data id.
		var dataID int64
		if row.HallAppointmentDataID != "" {
			dataID, err = intPart(row.HallAppointmentDataID)
			if err != nil {
				return nil, &FetchError{Kind: FetchMalformedResponse, Msg: "历史预约数据编号无法解析", Err: err}
			}
		}
		rid, err := intPart(row.ResourceID)
		if err != nil {
			return nil, &FetchError{Kind: FetchMalformedResponse, Msg: "历史资源编号无法解析", Err: err}
		}
		records = append(records, shuttle.RideRecord{
			AppID:             appID,
			AppointmentDataID: dataID,
			ResourceID:        int(rid),
			ResourceName:      row.ResourceName,
			PeriodText:        row.firstPeriodText(),
			CreatorName:       row.CreatorName,
			Department:        row.CreatorDepart,
			StatusName:        row.StatusName,
			AppointmentTime:   row.AppointmentTime,
			SignTime:          row.AppointmentSignTime,
		})
	}
	return records, nil
}
