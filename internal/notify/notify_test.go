package notify

import "testing"

func TestNoop_Notify(t *testing.T) {
	t.Parallel()

	var n Notifier = Noop{}
	n.Notify("anything") // must not panic
}

func TestNewDesktop_NilLogger(t *testing.T) {
	t.Parallel()

	d := NewDesktop(nil)
	if d.log == nil {
		t.Fatal("logger not defaulted")
	}
}
