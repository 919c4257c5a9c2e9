package domain

// Canonical answer shapes, one per format. CanonicalAnswer is a tagged
// variant: exactly one branch is populated, matching the question's format.
// Adding a format means adding a shape here and registering a validator;
// no stored record changes shape.

// TextAnswer is the text_input canonical shape. Matching is case-insensitive
// and trimmed, against Answer or any alternate.
type TextAnswer struct {
	Answer     string   `json:"answer"`
	Alternates []string `json:"alternates,omitempty"`
}

// ChoiceAnswer is the multiple_choice canonical shape.
type ChoiceAnswer struct {
	Correct string   `json:"correct"`
	Options []string `json:"options"`
}

// BoolAnswer is the true_false canonical shape.
type BoolAnswer struct {
	Answer bool `json:"answer"`
}

// CanonicalAnswer holds the format-shaped correct answer. It is a protected
// value: it must never reach a caller before that caller's own ledger is
// terminal.
type CanonicalAnswer struct {
	Text   *TextAnswer   `json:"text,omitempty"`
	Choice *ChoiceAnswer `json:"choice,omitempty"`
	Bool   *BoolAnswer   `json:"bool,omitempty"`
}

// Answer is a user's submitted answer. The populated field matches the
// question format: Text for text_input, SelectedOption for multiple_choice,
// Truth for true_false.
type Answer struct {
	Text           string `json:"text,omitempty"`
	SelectedOption string `json:"selected_option,omitempty"`
	Truth          *bool  `json:"answer,omitempty"`
}
