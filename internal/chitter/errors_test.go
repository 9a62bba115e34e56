package chitter

import (
	"errors"
	"testing"
)

func TestTagOf_RecoversTaggedError(t *testing.T) {
	t.Parallel()
	err := Fail(RoomNotFound)
	if tag := TagOf(err); tag != RoomNotFound {
		t.Fatalf("TagOf = %v, want RoomNotFound", tag)
	}
}

func TestTagOf_WrappedError(t *testing.T) {
	t.Parallel()
	err := errors.Join(errors.New("context"), Fail(ChannelNotFound))
	if tag := TagOf(err); tag != ChannelNotFound {
		t.Fatalf("TagOf = %v, want ChannelNotFound", tag)
	}
}

func TestTagOf_UnclassifiedErrorBecomesUnknown(t *testing.T) {
	t.Parallel()
	if tag := TagOf(errors.New("boom")); tag != UnknownServerError {
		t.Fatalf("TagOf = %v, want UnknownServerError", tag)
	}
}

func TestTagOf_NilErrorIsEmpty(t *testing.T) {
	t.Parallel()
	if tag := TagOf(nil); tag != "" {
		t.Fatalf("TagOf(nil) = %q, want empty", tag)
	}
}
