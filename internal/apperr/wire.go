package apperr

// Response is the uniform wire shape for tool and REST error payloads.
type Response struct {
	Status           string         `json:"status"`
	ErrorCode        Code           `json:"error_code"`
	Message          string         `json:"message"`
	RecoveryStrategy string         `json:"recovery_strategy,omitempty"`
	Details          map[string]any `json:"details,omitempty"`
}

// ToResponse converts any error into the wire error shape.
func ToResponse(err error) Response {
	e := As(err)
	if e == nil {
		e = Internal(err)
	}
	return Response{
		Status:           "error",
		ErrorCode:        e.Code,
		Message:          e.Message,
		RecoveryStrategy: e.Recovery,
		Details:          e.Details,
	}
}

// HTTPStatus maps a taxonomy code to an HTTP status for the REST surface.
func HTTPStatus(code Code) int {
	switch code {
	case CodeAuthRequired, CodeAuthFailed:
		return 401
	case CodeTemplateNotFound, CodeFragmentNotFound, CodeStyleNotFound,
		CodeSessionNotFound, CodeNotFound:
		return 404
	case CodeAliasInUse:
		return 409
	case CodeInvalidArguments, CodeValidationError, CodeInvalidGlobalParameters,
		CodeInvalidFragmentParams, CodeInvalidPosition, CodeInvalidAlias,
		CodeInvalidImageURL, CodeInvalidImageContentType, CodeImageTooLarge,
		CodeImageURLNotAccessible, CodeImageURLTimeout, CodeImageValidationError:
		return 400
	case CodeSessionNotReady, CodeInvalidSessionState:
		return 409
	case CodeBlobTooLarge:
		return 413
	case CodeDiskFull:
		return 507
	default:
		return 500
	}
}
