package engine

import (
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/xdpfeat/preprocessor/pkg/dataplane"
)

func TestClassifyOpenErrInterfaceNotFound(t *testing.T) {
	de := &dataplane.Error{Op: "open", Iface: "eth9", Err: fmt.Errorf("no such device")}
	ee, ok := classifyOpenErr(de).(*Error)
	if !ok {
		t.Fatalf("classifyOpenErr returned %T, want *Error", classifyOpenErr(de))
	}
	if ee.Code != InterfaceNotFound {
		t.Errorf("Code = %v, want InterfaceNotFound", ee.Code)
	}
}

func TestClassifyOpenErrPermissionDenied(t *testing.T) {
	de := &dataplane.Error{Op: "listen", Iface: "eth0", Err: syscall.EPERM}
	ee, ok := classifyOpenErr(de).(*Error)
	if !ok {
		t.Fatalf("classifyOpenErr returned %T, want *Error", classifyOpenErr(de))
	}
	if ee.Code != PermissionDenied {
		t.Errorf("Code = %v, want PermissionDenied", ee.Code)
	}
}

func TestClassifyOpenErrOtherListenFailureIsAttachFailed(t *testing.T) {
	de := &dataplane.Error{Op: "listen", Iface: "eth0", Err: fmt.Errorf("device busy")}
	ee, ok := classifyOpenErr(de).(*Error)
	if !ok {
		t.Fatalf("classifyOpenErr returned %T, want *Error", classifyOpenErr(de))
	}
	if ee.Code != AttachFailed {
		t.Errorf("Code = %v, want AttachFailed", ee.Code)
	}
}

func TestIsPermissionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"eacces", syscall.EACCES, true},
		{"eperm", syscall.EPERM, true},
		{"os permission", os.ErrPermission, true},
		{"unrelated", fmt.Errorf("device busy"), false},
	}
	for _, tt := range tests {
		if got := isPermissionError(tt.err); got != tt.want {
			t.Errorf("isPermissionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
