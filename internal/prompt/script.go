package prompt

import (
	"fmt"

	"github.com/haldane/guided/internal/workflow"
)

// Script replays a fixed sequence of answers. Engine tests and batch replay
// use it in place of a terminal; the literal tokens back/skip/cancel are
// interpreted exactly as a human typing them would be.
type Script struct {
	answers []string
	pos     int
	// Failures records every validation message shown, in order.
	Failures []string
	// Confirms records the confirmation texts asked.
	Confirms []string
	// ConfirmAnswer overrides the default-returning behavior of Confirm.
	ConfirmAnswer *bool
}

// NewScript builds a scripted collector over the given answers.
func NewScript(answers ...string) *Script {
	return &Script{answers: answers}
}

// Interactive is true: a script stands in for a human.
func (s *Script) Interactive() bool { return true }

func (s *Script) next(step workflow.Step) (string, error) {
	if s.pos >= len(s.answers) {
		return "", fmt.Errorf("prompt: script exhausted at step %s", step.ID)
	}
	answer := s.answers[s.pos]
	s.pos++
	return answer, nil
}

// Prompt replays the next scripted answer for the step.
func (s *Script) Prompt(step workflow.Step) (Outcome, error) {
	answer, err := s.next(step)
	if err != nil {
		return Outcome{}, err
	}
	return s.interpret(step, answer)
}

// Choice replays the next scripted answer, canonicalized against the
// step's option keys when it matches one.
func (s *Script) Choice(step workflow.Step) (Outcome, error) {
	outcome, err := s.Prompt(step)
	if err != nil || outcome.Kind != KindValue {
		return outcome, err
	}
	if key, ok := step.MatchOption(outcome.Value); ok {
		return Value(key), nil
	}
	return outcome, nil
}

// Confirm records the question and answers with ConfirmAnswer or def.
func (s *Script) Confirm(text string, def bool) (bool, error) {
	s.Confirms = append(s.Confirms, text)
	if s.ConfirmAnswer != nil {
		return *s.ConfirmAnswer, nil
	}
	return def, nil
}

// ShowError records the failure so tests can assert on retry behavior.
func (s *Script) ShowError(message, suggestion string) {
	s.Failures = append(s.Failures, message)
}

func (s *Script) interpret(step workflow.Step, answer string) (Outcome, error) {
	switch answer {
	case "back":
		return Back(), nil
	case "cancel":
		return Cancel(), nil
	case "skip":
		if step.Required {
			return Outcome{}, fmt.Errorf("prompt: script skips required step %s", step.ID)
		}
		return Skip(), nil
	}
	if answer == "" {
		if !step.Required {
			return Skip(), nil
		}
		if step.HasDefault() {
			return Value(step.Default), nil
		}
	}
	return Value(answer), nil
}
