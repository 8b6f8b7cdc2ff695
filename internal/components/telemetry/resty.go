package telemetry

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_status   = "resty.status"
)

// RequestIDHeader carries the id the server logs the request under.
const RequestIDHeader = "X-Request-Id"

// InstrumentResty tags every request made through client with a fresh request
// id and reports it. Error statuses are warnings, transport failures are
// reported as broken.
func InstrumentResty(client *resty.Client, tel API) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		id := req.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			req.SetHeader(RequestIDHeader, id)
		}
		tel.ReportDebug(report_resty_request, id, req.Method, req.URL)
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := res.Request.Header.Get(RequestIDHeader)
		tel.ReportDebug(report_resty_response, id, res.Time().String(), res.Status())
		if res.IsError() {
			tel.ReportWarning(report_resty_status, id, res.Request.Method, res.Request.URL, res.Status())
		}
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		var duration time.Duration
		if !req.Time.IsZero() {
			duration = time.Since(req.Time)
		}
		tel.ReportBroken(
			report_resty_response,
			err,
			req.Header.Get(RequestIDHeader),
			req.Method,
			req.URL,
			duration,
		)
	})
}
