package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stemsi/lesson-orchestrator/internal/session"
)

var errUnknownCommand = errors.New("unknown command, type h for help")

type commandKind int

const (
	cmdHelp commandKind = iota
	cmdSelect
	cmdContinue
	cmdAsk
	cmdMessage
	cmdPause
	cmdResume
	cmdShow
	cmdClose
)

type command struct {
	kind   commandKind
	option int
	text   string
}

// viewer is the part of the controller that stdin drives.
type viewer interface {
	SelectOption(index int)
	Continue()
	AskQuestion()
	SendMessage(text string)
	PauseVideo()
	ResumeVideo()
	Close()
}

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, errUnknownCommand
	}

	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch head {
	case "h", "help":
		return command{kind: cmdHelp}, nil
	case "c":
		return command{kind: cmdContinue}, nil
	case "a":
		return command{kind: cmdAsk}, nil
	case "q":
		if rest == "" {
			return command{}, errors.New("q needs a question")
		}
		return command{kind: cmdMessage, text: rest}, nil
	case "p":
		return command{kind: cmdPause}, nil
	case "r":
		return command{kind: cmdResume}, nil
	case "s":
		return command{kind: cmdShow}, nil
	case "x":
		return command{kind: cmdClose}, nil
	}

	n, err := strconv.Atoi(head)
	if err != nil || n < 1 {
		return command{}, errUnknownCommand
	}
	return command{kind: cmdSelect, option: n - 1}, nil
}

func (c command) apply(v viewer) {
	switch c.kind {
	case cmdSelect:
		v.SelectOption(c.option)
	case cmdContinue:
		v.Continue()
	case cmdAsk:
		v.AskQuestion()
	case cmdMessage:
		v.SendMessage(c.text)
	case cmdPause:
		v.PauseVideo()
	case cmdResume:
		v.ResumeVideo()
	case cmdClose:
		v.Close()
	}
}

func printSnapshot(out io.Writer, snap session.Snapshot) {
	fmt.Fprintf(out, "phase: %s (%s)\n", snap.Phase, snap.Status)
	if snap.Message != "" {
		fmt.Fprintf(out, "message: %s\n", snap.Message)
	}

	step := snap.Step
	if snap.Clarification != nil {
		step = snap.Clarification
	}
	if step == nil {
		return
	}

	fmt.Fprintf(out, "step %s: %s\n", step.ID, step.NarrationText)
	if step.InteractiveContent != "" {
		fmt.Fprintln(out, step.InteractiveContent)
	}

	q := snap.Quiz
	if !step.HasQuiz() || snap.Clarification != nil {
		return
	}
	if q.Finished {
		fmt.Fprintf(out, "quiz finished: %d/%d (c to continue, a to ask)\n", q.Score, q.Total)
		return
	}
	if q.CurrentIndex >= len(step.Quiz) {
		return
	}
	question := step.Quiz[q.CurrentIndex]
	fmt.Fprintf(out, "Q%d: %s\n", q.CurrentIndex+1, question.Question)
	for i, opt := range question.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
}
