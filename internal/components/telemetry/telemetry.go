package telemetry

import (
	"fmt"
)

// API is how components report what happened to them. Tests pass a Recorder
// and assert on the reports.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed in a way someone has to
	// look at, such as a console page that no longer matches the page model.
	//
	// The id names the component and method, `<component>.<method>`, all
	// lowercase. What exactly went wrong goes into params.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something worth investigating that is not a defect
	// of the component, the console rejecting a new user for example.
	ReportWarning(id string, params ...any)

	// ReportDebug reports a step of an operation, ignored in production.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a counter, values are points
	// over time and must not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with the namespace of a package, so ids only
// need to be unique within it.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(fmt.Sprintf("%s: %s", s.namespace, id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(fmt.Sprintf("%s: %s", s.namespace, msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(fmt.Sprintf("%s: %s", s.namespace, id), count)
}
