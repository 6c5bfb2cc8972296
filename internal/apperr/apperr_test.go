package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf_WrappedChain(t *testing.T) {
	t.Parallel()

	base := New(CodeSessionNotFound, "session not found: %s", "abc")
	wrapped := fmt.Errorf("handler: %w", base)

	if got := CodeOf(wrapped); got != CodeSessionNotFound {
		t.Fatalf("CodeOf() = %v, want %v", got, CodeSessionNotFound)
	}
	if !Is(wrapped, CodeSessionNotFound) {
		t.Fatalf("Is() = false, want true")
	}
}

func TestCodeOf_UnknownErrorIsInternal(t *testing.T) {
	t.Parallel()

	if got := CodeOf(errors.New("boom")); got != CodeInternalError {
		t.Fatalf("CodeOf() = %v, want %v", got, CodeInternalError)
	}
}

func TestToResponse_PreservesDetails(t *testing.T) {
	t.Parallel()

	err := New(CodeInvalidImageContentType, "unsupported content type").
		WithDetail("content_type", "application/pdf").
		WithRecovery("Provide a URL that serves an image content type")

	resp := ToResponse(err)
	if resp.Status != "error" {
		t.Fatalf("Status = %q, want error", resp.Status)
	}
	if resp.ErrorCode != CodeInvalidImageContentType {
		t.Fatalf("ErrorCode = %v", resp.ErrorCode)
	}
	if resp.Details["content_type"] != "application/pdf" {
		t.Fatalf("Details = %v", resp.Details)
	}
}

func TestToResponse_InternalHidesCause(t *testing.T) {
	t.Parallel()

	resp := ToResponse(errors.New("pq: connection refused"))
	if resp.ErrorCode != CodeInternalError {
		t.Fatalf("ErrorCode = %v", resp.ErrorCode)
	}
	if resp.Message != "internal server error" {
		t.Fatalf("Message leaks cause: %q", resp.Message)
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[Code]int{
		CodeAuthFailed:      401,
		CodeSessionNotFound: 404,
		CodeAliasInUse:      409,
		CodeInvalidAlias:    400,
		CodeDiskFull:        507,
		CodeInternalError:   500,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", code, got, want)
		}
	}
}
