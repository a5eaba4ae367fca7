package models

// NoticeLevel classifies a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient, non-blocking message surfaced to the user after an
// asynchronous operation settles (or is rejected up front).
type Notice struct {
	Level   NoticeLevel
	Message string
}
