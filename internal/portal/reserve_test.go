package portal

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marchkov/internal/shuttle"
)

var reserveDay = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestReserveTempCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/reservation/get-sign-qrcode", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("type"))
		assert.Equal(t, "2", q.Get("resource_id"))
		assert.Equal(t, "12:00", q.Get("text"))
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{"code":"TEMP-1","name":"李四\r\n2301110000\r\n数学科学学院"}}`))
	})

	c := newTestClient(t, mux)
	sel := shuttle.SelectionResult{ResourceID: 2, ResourceName: "新校区→燕园校区", StartTime: "12:00", IsTemp: true}
	out, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, Profile{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "TEMP-1", out.QR.Code)
	assert.True(t, out.QR.IsTemp)
	assert.Equal(t, "李四", out.Profile.Name)
	assert.Equal(t, "数学科学学院", out.Profile.Department)
	assert.Equal(t, "12:00", out.Summary.StartTime)
}

func TestReserveTempPlaceholderKeepsCachedProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/reservation/get-sign-qrcode", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{"code":"TEMP-2","name":"马池口🐮🐴\r\n\r\n这个需要你自己衡量！"}}`))
	})

	c := newTestClient(t, mux)
	cached := Profile{Name: "李四", Department: "数学科学学院"}
	sel := shuttle.SelectionResult{ResourceID: 2, StartTime: "12:00", IsTemp: true}
	out, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, cached, nil)
	require.NoError(t, err)

	assert.Equal(t, cached, out.Profile)
	assert.Equal(t, "李四", out.Summary.CreatorName)
}

func TestReserveTempPlaceholderFillsEmptyCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/reservation/get-sign-qrcode", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{"code":"TEMP-3","name":"马池口🐮🐴\r\n\r\n这个需要你自己衡量！"}}`))
	})

	c := newTestClient(t, mux)
	sel := shuttle.SelectionResult{ResourceID: 2, StartTime: "12:00", IsTemp: true}
	out, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, Profile{}, nil)
	require.NoError(t, err)

	// With nothing cached, even the placeholder is better than blank.
	assert.Equal(t, PlaceholderName, out.Profile.Name)
	assert.Equal(t, PlaceholderDepartment, out.Profile.Department)
}

func TestReserveTempCodeMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/reservation/get-sign-qrcode", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{"code":"","name":""}}`))
	})

	c := newTestClient(t, mux)
	sel := shuttle.SelectionResult{ResourceID: 2, StartTime: "12:00", IsTemp: true}
	_, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, Profile{}, nil)

	var resErr *ReserveError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ReserveQRNotFound, resErr.Kind)
}

func scheduledMux(t *testing.T, qrBody string) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/site/reservation/launch", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2", r.PostFormValue("resource_id"))
		assert.JSONEq(t, `[{"date":"2026-03-02","period":"101","sub_resource_id":0}]`, r.PostFormValue("data"))
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{}}`))
	})
	mux.HandleFunc("/site/reservation/my-list-time", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{"data":[
			{"id":"123.0","resource_id":"2","hall_appointment_data_id":"456.0",
			 "creator_name":"李四","creator_depart":"数学科学学院",
			 "resource_name":"新校区→燕园校区",
			 "period_text":{"0":{"text":["08:30"]}},
			 "status_name":"已预约","appointment_tim":"2026-03-02 08:30"}
		]}}`))
	})
	mux.HandleFunc("/site/reservation/get-sign-qrcode", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "0", q.Get("type"))
		assert.Equal(t, "123", q.Get("id"))
		assert.Equal(t, "456", q.Get("hall_appointment_data_id"))
		_, _ = w.Write([]byte(qrBody))
	})
	return mux
}

func TestReserveScheduled(t *testing.T) {
	mux := scheduledMux(t, `{"e":0,"m":"","d":{"code":"QR-123"}}`)

	c := newTestClient(t, mux)
	sel := shuttle.SelectionResult{ResourceID: 2, ResourceName: "新校区→燕园校区", PeriodID: 101, StartTime: "08:30"}
	out, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, Profile{}, nil)
	require.NoError(t, err)

	assert.Equal(t, "QR-123", out.QR.Code)
	assert.False(t, out.QR.IsTemp)
	assert.Equal(t, "新校区→燕园校区", out.Summary.ResourceName)
	assert.Equal(t, "08:30", out.Summary.StartTime)
	assert.Equal(t, "李四", out.Summary.CreatorName)
}

func TestReserveScheduledQRUnavailable(t *testing.T) {
	mux := scheduledMux(t, `{"e":0,"m":"","d":{"code":""}}`)

	c := newTestClient(t, mux)
	sel := shuttle.SelectionResult{ResourceID: 2, PeriodID: 101, StartTime: "08:30"}
	_, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, Profile{}, nil)

	var resErr *ReserveError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ReserveQRNotFound, resErr.Kind)
}

func TestReserveLaunchRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/reservation/launch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"e":1,"m":"时间冲突","d":null}`))
	})

	c := newTestClient(t, mux)
	sel := shuttle.SelectionResult{ResourceID: 2, PeriodID: 101, StartTime: "08:30"}
	_, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, Profile{}, nil)

	var resErr *ReserveError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ReserveLaunchRejected, resErr.Kind)
}

func TestReserveNoMatchingDirection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/site/reservation/launch", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{}}`))
	})
	mux.HandleFunc("/site/reservation/my-list-time", func(w http.ResponseWriter, r *http.Request) {
		// Only a Changping-bound booking exists.
		_, _ = w.Write([]byte(`{"e":0,"m":"","d":{"data":[
			{"id":"9","resource_id":"5","hall_appointment_data_id":"10",
			 "resource_name":"燕园校区→新校区","status_name":"已预约"}
		]}}`))
	})

	c := newTestClient(t, mux)
	sel := shuttle.SelectionResult{ResourceID: 2, PeriodID: 101, StartTime: "08:30"}
	_, err := c.NewSession().Reserve(context.Background(), sel, reserveDay, Profile{}, nil)

	var resErr *ReserveError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, ReserveNoMatchingReservation, resErr.Kind)
}

func TestSplitCreatorName(t *testing.T) {
	name, dept := splitCreatorName("李四\r\n2301110000\r\n数学科学学院")
	assert.Equal(t, "李四", name)
	assert.Equal(t, "数学科学学院", dept)

	name, dept = splitCreatorName("李四")
	assert.Equal(t, "李四", name)
	assert.Empty(t, dept)

	name, dept = splitCreatorName("")
	assert.Empty(t, name)
	assert.Empty(t, dept)
}
