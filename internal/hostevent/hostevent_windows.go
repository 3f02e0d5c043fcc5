//go:build windows

package hostevent

import "golang.org/x/sys/windows"

// winEvent wraps an auto-reset kernel event object.
type winEvent struct {
	handle windows.Handle
}

// New creates an unsignalled auto-reset event.
func New() (Event, error) {
	// Second argument zero selects auto-reset.
	h, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return nil, err
	}
	return &winEvent{handle: h}, nil
}

func (e *winEvent) Set() {
	_ = windows.SetEvent(e.handle)
}

func (e *winEvent) Wait() {
	_, _ = windows.WaitForSingleObject(e.handle, windows.INFINITE)
}

func (e *winEvent) Close() error {
	if e.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(e.handle)
	e.handle = 0
	return err
}
