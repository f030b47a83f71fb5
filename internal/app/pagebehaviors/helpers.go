package pagebehaviors

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bloomcycle/bloom/internal/app/system/dom"
	"github.com/google/uuid"
)

// ShowToast appends a toast to the body, shows it after ToastShowDelay,
// hides it after ToastDisplayDuration and detaches it FadeDuration later.
// An empty kind means "info".
func ShowToast(doc dom.Document, sched Scheduler, message, kind string) dom.Element {
	if kind == "" {
		kind = "info"
	}
	toast := doc.CreateElement("div")
	toast.SetAttribute("id", "toast-"+uuid.NewString())
	toast.AddClass("toast", "toast-"+kind)
	toast.SetTextContent(message)
	doc.Body().AppendChild(toast)

	sched.AfterFunc(ToastShowDelay, func() { toast.AddClass("show") })
	sched.AfterFunc(ToastDisplayDuration, func() {
		toast.RemoveClass("show")
		sched.AfterFunc(FadeDuration, toast.Remove)
	})
	return toast
}

// ShowLoading disables button and swaps its label for LoadingLabel,
// remembering the original in data-original-text.
func ShowLoading(button dom.Element) {
	button.SetDisabled(true)
	button.SetDataset("originalText", button.TextContent())
	button.SetTextContent(LoadingLabel)
}

// HideLoading re-enables button and restores its saved label.
func HideLoading(button dom.Element) {
	button.SetDisabled(false)
	button.SetTextContent(button.Dataset("originalText"))
}

// GetCookie finds name in a Cookie header value and returns its
// percent-decoded value. A malformed header holds no cookies.
func GetCookie(header, name string) (string, bool) {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return "", false
	}
	for _, c := range cookies {
		if c.Name != name {
			continue
		}
		v, err := url.PathUnescape(c.Value)
		if err != nil {
			return c.Value, true
		}
		return v, true
	}
	return "", false
}

// Debounce returns a function that runs fn once, wait after the last call.
func Debounce(sched Scheduler, wait time.Duration, fn func()) func() {
	var (
		mu    sync.Mutex
		timer *clock.Timer
	)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = sched.AfterFunc(wait, fn)
	}
}

// FormatDate renders t in US long form, e.g. "Monday, March 4, 2024".
func FormatDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}
