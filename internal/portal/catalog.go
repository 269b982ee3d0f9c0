package portal

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/example/marchkov/internal/shuttle"
)

// FetchTodayResources lists the day's shuttle lines with their departure
// slots. Slot rows with no seats left (margin 0) are skipped. A portal answer
// with zero resources is the recoverable Empty condition, not a hard error.
func (s *Session) FetchTodayResources(ctx context.Context, today time.Time, progress Progress) ([]shuttle.BusResource, error) {
	q := url.Values{
		"hall_id":   {"1"},
		"time":      {today.Format("2006-01-02")},
		"p":         {"1"},
		"page_size": {"0"},
	}
	status, body, err := s.get(ctx, s.c.wprocBase+"/site/reservation/list-page", q)
	if err != nil {
		return nil, &FetchError{Kind: FetchNetworkError, Msg: "获取班车信息失败", Err: err}
	}
	if !ok(status) {
		return nil, &FetchError{Kind: FetchNetworkError, Msg: fmt.Sprintf("获取班车信息失败（%d）", status)}
	}
	var d listPageData
	if err := decodeEnvelope(body, &d); err != nil {
		return nil, &FetchError{Kind: FetchMalformedResponse, Msg: "班车信息响应无法解析", Err: err}
	}

	resources := make([]shuttle.BusResource, 0, len(d.List))
	for _, row := range d.List {
		id, err := intPart(row.ID)
		if err != nil {
			return nil, &FetchError{Kind: FetchMalformedResponse, Msg: "班车资源编号无法解析", Err: err}
		}
		res := shuttle.BusResource{ID: int(id), Name: row.Name}

		keys := make([]string, 0, len(row.Table))
		for k := range row.Table {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, p := range row.Table[k] {
				if p.Row.Margin <= 0 {
					continue
				}
				timeID, err := intPart(p.TimeID)
				if err != nil {
					continue
				}
				res.Periods = append(res.Periods, shuttle.Period{
					ID:        int(timeID),
					StartTime: p.Yaxis,
				})
			}
		}
		resources = append(resources, res)
	}

	if len(resources) == 0 {
		return nil, &FetchError{Kind: FetchEmpty, Msg: "今日没有班车排班"}
	}
	progress.Emit(fmt.Sprintf("获取班车信息成功，共 %d 条线路", len(resources)))
	return resources, nil
}
