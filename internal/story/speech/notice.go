package speech

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

var (
	ErrNotReady = errors.New("speech session is not ready")
	ErrShutdown = errors.New("speech session has been shut down")
)

type NoticeKind int

const (
	// NoticeInitFailed means narration is unavailable for this session.
	NoticeInitFailed NoticeKind = iota
	// NoticeLocaleFallback means the fallback locale replaced the requested one.
	NoticeLocaleFallback
	// NoticeLocaleUnsupported means neither the requested nor the fallback locale is available.
	NoticeLocaleUnsupported
)

// Notice is a dismissable, user-facing message about the speech session.
type Notice struct {
	Kind      NoticeKind
	Requested language.Tag
	Applied   language.Tag
	Err       error
}

func (n Notice) String() string {
	switch n.Kind {
	case NoticeInitFailed:
		return fmt.Sprintf("Speech engine could not start: %v", n.Err)
	case NoticeLocaleFallback:
		return fmt.Sprintf("%s is not supported, using %s", displayName(n.Requested), displayName(n.Applied))
	case NoticeLocaleUnsupported:
		return fmt.Sprintf("%s is not supported", displayName(n.Requested))
	default:
		return "unknown speech notice"
	}
}

func displayName(tag language.Tag) string {
	base, _ := tag.Base()
	return fmt.Sprintf("%s (%s)", base.String(), tag)
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
