package question

import (
	"errors"
	"fmt"

	"flagquiz-service/internal/domain"
)

var (
	// ErrUnknownCategory means no prompt builder exists for the category.
	ErrUnknownCategory = errors.New("unknown question category")
	// ErrBadParams means the format needs parameters that were not supplied.
	ErrBadParams = errors.New("invalid question parameters")
)

// Params carries format-specific inputs for Define. Options must include the
// correct answer for multiple_choice; Claim and Truth drive true_false.
type Params struct {
	Options []string
	Claim   string
	Truth   bool
}

// builder produces the prompt and the canonical answer text for a category.
// Adding a category is one entry here; the record shape never changes.
type builder func(c domain.Country) (prompt, answer string, err error)

var builders = map[string]builder{
	domain.CategoryFlag: func(c domain.Country) (string, string, error) {
		return "Which country does this flag belong to?", c.Name, nil
	},
	domain.CategoryCapital: func(c domain.Country) (string, string, error) {
		if c.Capital == "" {
			return "", "", fmt.Errorf("%w: %s has no capital on record", ErrUnknownCategory, c.Code)
		}
		return fmt.Sprintf("What is the capital of %s?", c.Name), c.Capital, nil
	},
	domain.CategoryLargestCity: func(c domain.Country) (string, string, error) {
		if c.LargestCity == "" {
			return "", "", fmt.Errorf("%w: %s has no largest city on record", ErrUnknownCategory, c.Code)
		}
		return fmt.Sprintf("What is the largest city of %s?", c.Name), c.LargestCity, nil
	},
	domain.CategoryContinent: func(c domain.Country) (string, string, error) {
		if c.Region == "" {
			return "", "", fmt.Errorf("%w: %s has no region on record", ErrUnknownCategory, c.Code)
		}
		return fmt.Sprintf("On which continent is %s located?", c.Name), c.Region, nil
	},
	domain.CategoryCurrency: func(c domain.Country) (string, string, error) {
		for _, cur := range c.Currencies {
			return fmt.Sprintf("What currency is used in %s?", c.Name), cur.Name, nil
		}
		return "", "", fmt.Errorf("%w: %s has no currency on record", ErrUnknownCategory, c.Code)
	},
	domain.CategoryLanguage: func(c domain.Country) (string, string, error) {
		if len(c.Languages) == 0 {
			return "", "", fmt.Errorf("%w: %s has no language on record", ErrUnknownCategory, c.Code)
		}
		return fmt.Sprintf("Which language is spoken in %s?", c.Name), c.Languages[0], nil
	},
	domain.CategoryHighestPoint: func(c domain.Country) (string, string, error) {
		hp, _ := c.Extra["highestPoint"].(string)
		if hp == "" {
			return "", "", fmt.Errorf("%w: %s has no highest point on record", ErrUnknownCategory, c.Code)
		}
		return fmt.Sprintf("What is the highest point of %s?", c.Name), hp, nil
	},
}

// Define builds a validated question for a country. The canonical answer is
// shaped by the format; the flag category additionally accepts the country's
// alternate spellings for text input.
func Define(c domain.Country, category, format string, p Params) (domain.Question, error) {
	q := domain.Question{
		ID:          fmt.Sprintf("%s-%s-%s", category, format, c.Code),
		Category:    category,
		Format:      format,
		CountryCode: c.Code,
	}

	switch format {
	case domain.FormatTextInput:
		build, ok := builders[category]
		if !ok {
			return domain.Question{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		prompt, answer, err := build(c)
		if err != nil {
			return domain.Question{}, err
		}
		q.Prompt = prompt
		text := &domain.TextAnswer{Answer: answer}
		if category == domain.CategoryFlag {
			text.Alternates = append(text.Alternates, c.Alternates...)
		}
		q.Canonical.Text = text

	case domain.FormatMultipleChoice:
		build, ok := builders[category]
		if !ok {
			return domain.Question{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
		}
		prompt, answer, err := build(c)
		if err != nil {
			return domain.Question{}, err
		}
		if len(p.Options) < 2 {
			return domain.Question{}, fmt.Errorf("%w: multiple_choice needs at least 2 options", ErrBadParams)
		}
		if !contains(p.Options, answer) {
			return domain.Question{}, fmt.Errorf("%w: options must include the correct answer", ErrBadParams)
		}
		q.Prompt = prompt
		q.Canonical.Choice = &domain.ChoiceAnswer{Correct: answer, Options: p.Options}

	case domain.FormatTrueFalse:
		if p.Claim == "" {
			return domain.Question{}, fmt.Errorf("%w: true_false needs a claim", ErrBadParams)
		}
		q.Prompt = p.Claim
		q.Canonical.Bool = &domain.BoolAnswer{Answer: p.Truth}

	default:
		return domain.Question{}, fmt.Errorf("%w: %q", ErrBadParams, format)
	}

	return q, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
