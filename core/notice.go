package core

// Notice levels
const (
	NoticeSuccess = "success"
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a short-lived, user-facing message attached to a response.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func SuccessNotice(msg string) *Notice { return &Notice{Level: NoticeSuccess, Message: msg} }
func InfoNotice(msg string) *Notice    { return &Notice{Level: NoticeInfo, Message: msg} }
func WarningNotice(msg string) *Notice { return &Notice{Level: NoticeWarning, Message: msg} }
func ErrorNotice(msg string) *Notice   { return &Notice{Level: NoticeError, Message: msg} }
