package model

type NoticeKind string

const (
	NoticeKindGeneration = NoticeKind("generation")
	NoticeKindStorage    = NoticeKind("storage")
)

// Notice is a user-visible error raised by a session transition.
type Notice struct {
	Kind NoticeKind
	Text string
}
