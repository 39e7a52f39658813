package recognition

// The provider signals both success and failure with a transport-success
// HTTP status; the embedded header status integer is the real signal.
// 2xxxxxxx is the success sentinel, 4-prefixed codes are client class,
// 5-prefixed codes are server class.
const StatusSuccess = 20000000

type classification struct {
	kind        Kind
	userMessage string
	retriable   bool
}

// statusTable maps every known provider status to a user-facing message
// and a retriable flag.
var statusTable = map[int]classification{
	// Auth token rejected or expired. A fresh token can succeed, so the
	// same user-visible attempt is worth retrying.
	40000001: {KindAuth, "服务凭证已过期，请重试", true},
	// Malformed request envelope.
	40000002: {KindClientConfig, "客户端配置错误，请联系支持", false},
	// Invalid request parameter (appkey, format, language).
	40000003: {KindClientConfig, "客户端配置错误，请联系支持", false},
	// Provider closed an idle connection.
	40000004: {KindServer, "服务暂时不可用，请稍后重试", true},
	// Rate limited.
	40000005: {KindRateLimited, "请求过于频繁，请稍后重试", true},
	// Unsupported audio format.
	40010003: {KindUnsupportedFormat, "音频格式不支持，请重新录制", false},
	// Unsupported sample rate.
	40010004: {KindUnsupportedFormat, "音频格式不支持，请重新录制", false},
	// Audio exceeds the duration ceiling.
	40270002: {KindAudioTooLong, "录音超出时长限制，请重新录制", false},
	// Audio below the duration floor.
	40270003: {KindAudioTooShort, "录音太短，请重新录制", false},
	// Request body exceeds the size cap.
	40270004: {KindPayloadTooLarge, "音频文件过大，请重新录制", false},
	// Transient audio-quality rejection.
	41010101: {KindAudioQuality, "音质不佳，请重试", true},
	// Provider internal error.
	50000000: {KindServer, "服务暂时不可用，请稍后重试", true},
	// Provider downstream call failed.
	50000001: {KindServer, "服务暂时不可用，请稍后重试", true},
}

// classifyStatus maps a non-success provider status to a typed error.
// Unrecognized codes default to retriable with a generic message, failing
// safe toward giving the user another chance; unrecognized server-class
// codes keep the server kind.
func classifyStatus(status int, statusText, taskID string) *Error {
	if c, ok := statusTable[status]; ok {
		return &Error{
			Kind:        c.kind,
			Status:      status,
			Message:     statusText,
			UserMessage: c.userMessage,
			Retriable:   c.retriable,
			TaskID:      taskID,
		}
	}

	kind := KindUnknown
	userMessage := "识别失败，请重试"
	if status >= 50000000 && status < 60000000 {
		kind = KindServer
		userMessage = "服务暂时不可用，请稍后重试"
	}
	return &Error{
		Kind:        kind,
		Status:      status,
		Message:     statusText,
		UserMessage: userMessage,
		Retriable:   true,
		TaskID:      taskID,
	}
}
