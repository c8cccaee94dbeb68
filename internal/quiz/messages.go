package quiz

import "fmt"

const helpText = "You can request next trivia question by sending /next or finish the session by sending /bye."

const (
	cmdStart = "/start"
	cmdNext  = "/next"
	cmdBye   = "/bye"
)

func greeting(firstName string) string {
	return fmt.Sprintf("Hello %s!\n%s", firstName, helpText)
}

func farewell(firstName string) string {
	return fmt.Sprintf("Good bye %s, see you next time!", firstName)
}

func stranger() string {
	return "I beg your pardon, but who are you? We haven't been introduced yet... (please /start me)"
}

func pleaseWait(firstName string) string {
	return fmt.Sprintf("%s, please wait till I find more questions for you...", firstName)
}

func tryLater(firstName string) string {
	return fmt.Sprintf("Sorry, %s, but I cannot find more question now, please try again later.", firstName)
}

func unknownCommand(text string) string {
	return fmt.Sprintf("Sorry, I don't understand this command: '%s'\n%s", text, helpText)
}
