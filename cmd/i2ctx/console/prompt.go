package console

import (
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

// YesOrNo asks question and returns Yes or No. Anything but an explicit yes is No:
// a confirmation guards a bus write.
func YesOrNo(question string) (string, error) {
	answer, err := Prompt(question+" [y/N]: ", Yes, No)
	if err != nil {
		return No, err
	}
	if answer == "" {
		return No, nil
	}
	return answer, nil
}

// Prompt reads one line. With choices given, the answer is lower-cased and must be
// one of them, otherwise "" is returned.
func Prompt(prompt string, choices ...string) (string, error) {
	rl, err := readline.New(prompt)
	if err != nil {
		return "", err
	}
	defer rl.Close()
	line, err := rl.Readline()
	if err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return line, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	for _, c := range choices {
		if answer == c {
			return answer, nil
		}
	}
	return "", nil
}
