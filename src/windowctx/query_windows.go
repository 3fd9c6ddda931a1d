//go:build windows

package windowctx

import (
	"errors"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procShowWindow               = user32.NewProc("ShowWindow")
)

const swRestore = 9

type winRect struct {
	Left, Top, Right, Bottom int32
}

type winQuery struct{}

// NewQuery returns the user32-backed window query.
func NewQuery() Query {
	return winQuery{}
}

func (winQuery) Active() (*Context, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return &Context{}, nil
	}

	var title [256]uint16
	_, _, _ = procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&title[0])), uintptr(len(title)))

	var class [256]uint16
	_, _, _ = procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&class[0])), uintptr(len(class)))

	var pid uint32
	_, _, _ = procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	visible, _, _ := procIsWindowVisible.Call(hwnd)

	ctx := &Context{
		Handle:      hwnd,
		Title:       windows.UTF16ToString(title[:]),
		ClassName:   windows.UTF16ToString(class[:]),
		ProcessID:   pid,
		ProcessName: processName(pid),
		Visible:     visible != 0,
		Active:      true,
	}

	var r winRect
	if ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r))); ret != 0 {
		ctx.Position = &Rect{X: r.Left, Y: r.Top, Width: r.Right - r.Left, Height: r.Bottom - r.Top}
	}

	return ctx, nil
}

func (winQuery) Focus(handle uintptr) error {
	if handle == 0 {
		return errors.New("zero window handle")
	}
	if iconic, _, _ := procIsIconic.Call(handle); iconic != 0 {
		_, _, _ = procShowWindow.Call(handle, swRestore)
	}
	if ret, _, _ := procSetForegroundWindow.Call(handle); ret == 0 {
		return errors.New("SetForegroundWindow refused")
	}
	return nil
}

// processName resolves the executable base name for pid, or "" when the
// process cannot be opened (elevation, exit races).
func processName(pid uint32) string {
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	var buf [windows.MAX_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}
