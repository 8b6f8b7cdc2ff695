package console

import (
	"context"
	"errors"
	"fmt"
)

var ErrAutomation = errors.New("admin console automation failed")

var (
	// ErrInterfaceFailure means the console markup did not match the page model:
	// a selector, label or title was not where it was expected.
	ErrInterfaceFailure = fmt.Errorf("%w: browser interface failure", ErrAutomation)
	// ErrInitFailed means the server was already initialized, or the first-run
	// wizard showed a panel it does not know.
	ErrInitFailed = fmt.Errorf("%w: initialization failed", ErrAutomation)
	// ErrWizardDidNotConverge means the first-run wizard was still presenting
	// panels after the step or time bound.
	ErrWizardDidNotConverge = fmt.Errorf("%w: wizard did not converge", ErrInitFailed)
	// ErrAddFailed means the console rejected a create, or the record it shows
	// afterwards differs from the request.
	ErrAddFailed = fmt.Errorf("%w: add failed", ErrAutomation)
	// ErrDeleteFailed means the record to delete does not exist.
	ErrDeleteFailed = fmt.Errorf("%w: delete failed", ErrAutomation)
	// ErrUnexpectedServerResponse means an error banner appeared where none was
	// expected.
	ErrUnexpectedServerResponse = fmt.Errorf("%w: unexpected server response", ErrAutomation)
)

func interfaceFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInterfaceFailure, fmt.Sprintf(format, args...))
}

func initFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInitFailed, fmt.Sprintf(format, args...))
}

func addFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAddFailed, fmt.Sprintf(format, args...))
}

func deleteFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDeleteFailed, fmt.Sprintf(format, args...))
}

// Kind names the class of err as reported to API callers.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWizardDidNotConverge):
		return "WizardDidNotConverge"
	case errors.Is(err, ErrInitFailed):
		return "InitFailed"
	case errors.Is(err, ErrInterfaceFailure):
		return "BrowserInterfaceFailure"
	case errors.Is(err, ErrAddFailed):
		return "AddFailed"
	case errors.Is(err, ErrDeleteFailed):
		return "DeleteFailed"
	case errors.Is(err, ErrUnexpectedServerResponse):
		return "UnexpectedServerResponse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	}
	return "RequestFailed"
}
