// Package pagebehaviors holds the small page enhancements shared by Bloom
// pages: the mood picker, check-in draft persistence, auto-dismissing alerts,
// toasts and loading buttons, plus a few utilities.
//
// Each initializer is a no-op when its anchors are missing from the
// document. Timers are fire-and-forget: overlapping triggers simply schedule
// overlapping callbacks.
package pagebehaviors

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bloomcycle/bloom/internal/app/system/dom"
)

// DraftKeyPrefix namespaces check-in drafts in Storage.
const DraftKeyPrefix = "checkin_"

// Fixed delays.
const (
	AlertDismissDelay    = 5000 * time.Millisecond
	FadeDuration         = 300 * time.Millisecond
	ToastShowDelay       = 100 * time.Millisecond
	ToastDisplayDuration = 3000 * time.Millisecond
)

// LoadingLabel replaces a button's text while a request is in flight.
const LoadingLabel = "Loading..."

// Storage is a string key-value store with local-storage semantics.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
}

// Scheduler runs a callback once after a delay. clock.New() schedules on
// the runtime timer and *clock.Mock only when its time is advanced.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) *clock.Timer
}

// DraftKey returns the storage key for a form field.
func DraftKey(fieldName string) string {
	return DraftKeyPrefix + fieldName
}

// Init runs every page initializer against doc.
func Init(doc dom.Document, store Storage, sched Scheduler) {
	InitMoodSelector(doc)
	InitCheckInForm(doc, store)
	InitAlerts(doc, sched)
}

// InitMoodSelector makes .mood-option elements an exclusive picker that
// mirrors the chosen data-mood into #mood-input.
func InitMoodSelector(doc dom.Document) {
	options := doc.QuerySelectorAll(".mood-option")
	input := doc.GetElementByID("mood-input")
	if len(options) == 0 || input == nil {
		return
	}
	for _, opt := range options {
		opt := opt
		opt.AddEventListener("click", func(e *dom.Event) {
			e.PreventDefault()
			for _, o := range options {
				o.RemoveClass("active")
			}
			opt.AddClass("active")
			input.SetValue(opt.Dataset("mood"))
		})
	}
}

// draftable reports whether a field's value is persisted as a draft.
func draftable(field dom.Element) bool {
	t := field.Type()
	return t != "radio" && t != "checkbox"
}

// InitCheckInForm restores drafts into the .check-in-form fields, saves every
// change, and clears the drafts when the form is submitted.
func InitCheckInForm(doc dom.Document, store Storage) {
	form := doc.QuerySelector(".check-in-form")
	if form == nil {
		return
	}
	fields := form.QuerySelectorAll("input, textarea")
	for _, field := range fields {
		field := field
		key := DraftKey(field.Name())
		if saved, ok := store.GetItem(key); ok && saved != "" && draftable(field) {
			field.SetValue(saved)
		}
		field.AddEventListener("change", func(*dom.Event) {
			if draftable(field) {
				store.SetItem(key, field.Value())
			}
		})
	}
	form.AddEventListener("submit", func(*dom.Event) {
		for _, field := range fields {
			store.RemoveItem(DraftKey(field.Name()))
		}
	})
}

// InitAlerts schedules every .alert present now to fade out and gives each a
// close button that fades it immediately.
func InitAlerts(doc dom.Document, sched Scheduler) {
	for _, alert := range doc.QuerySelectorAll(".alert") {
		alert := alert
		sched.AfterFunc(AlertDismissDelay, func() { FadeOut(alert, sched) })

		btn := doc.CreateElement("button")
		btn.SetAttribute("type", "button")
		btn.AddClass("alert-close")
		btn.SetTextContent("×")
		btn.SetAttribute("aria-label", "Close")
		btn.AddEventListener("click", func(*dom.Event) { FadeOut(alert, sched) })
		alert.AppendChild(btn)
	}
}

// FadeOut drops el's opacity now and hides it after FadeDuration.
func FadeOut(el dom.Element, sched Scheduler) {
	el.SetStyle("opacity", "0")
	sched.AfterFunc(FadeDuration, func() { el.SetStyle("display", "none") })
}
