package domain

// Text is an optional piece of model-derived text: condensed content or a hypothesis.
// A failed condensation yields an absent Text, which flows downstream and must be
// handled explicitly by every consumer.
type Text struct {
	value   string
	present bool
}

// SomeText wraps a present value.
func SomeText(s string) Text { return Text{value: s, present: true} }

// NoText returns an absent value.
func NoText() Text { return Text{} }

// Get returns the value and whether it is present.
func (t Text) Get() (string, bool) { return t.value, t.present }

// Present reports whether the value exists.
func (t Text) Present() bool { return t.present }

// OrElse returns the value, or fallback when absent.
func (t Text) OrElse(fallback string) string {
	if !t.present {
		return fallback
	}
	return t.value
}
