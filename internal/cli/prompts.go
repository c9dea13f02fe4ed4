package cli

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

const maxQueryRunes = 2000

// errQuit ends the interactive loop.
var errQuit = errors.New("quit")

// Prompter reads one line of user input.
type Prompter interface {
	AskQuery() (string, error)
	ConfirmClear() (bool, error)
}

type surveyPrompter struct{}

// AskQuery prompts for the next query. Ctrl-C and EOF end the session.
func (surveyPrompter) AskQuery() (string, error) {
	var query string
	prompt := &survey.Input{
		Message: "📊 Ask:",
		Help:    "Enter a ticker like AAPL or $TSLA, a question, or /help",
	}

	err := survey.AskOne(prompt, &query, survey.WithValidator(func(val interface{}) error {
		str, _ := val.(string)
		if utf8.RuneCountInString(str) > maxQueryRunes {
			return fmt.Errorf("query too long (max %d characters)", maxQueryRunes)
		}
		return nil
	}))
	if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}
	return query, nil
}

// ConfirmClear asks before wiping the saved queries.
func (surveyPrompter) ConfirmClear() (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: "Clear all saved queries?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, nil
		}
		return false, err
	}
	return confirmed, nil
}
