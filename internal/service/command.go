package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Command is the closed vocabulary of voice navigation intents.
type Command int

const (
	CommandSkip Command = iota + 1
	CommandMoveNext
	CommandEndExam
)

// ErrUnknownCommand is returned for phrases outside the vocabulary.
var ErrUnknownCommand = errors.New("unknown voice command")

// commandVocabulary maps normalized phrases onto commands. The phrase set is
// closed; near misses are rejected rather than fuzzy-matched.
var commandVocabulary = map[string]Command{
	"skip":                      CommandSkip,
	"skip this question":        CommandSkip,
	"skip the question":         CommandSkip,
	"move next":                 CommandMoveNext,
	"next question":             CommandMoveNext,
	"move to next question":     CommandMoveNext,
	"move to the next question": CommandMoveNext,
	"end exam":                  CommandEndExam,
	"end examination":           CommandEndExam,
	"finish exam":               CommandEndExam,
	"finish examination":        CommandEndExam,
	"end the exam":              CommandEndExam,
}

// ParseCommand normalizes a raw phrase (trim, lower-case) and resolves it
// against the vocabulary.
func ParseCommand(raw string) (Command, error) {
	cmd, ok := commandVocabulary[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, ErrUnknownCommand
	}
	return cmd, nil
}

// String returns the canonical phrase for a command.
func (c Command) String() string {
	switch c {
	case CommandSkip:
		return "skip"
	case CommandMoveNext:
		return "move next"
	case CommandEndExam:
		return "end exam"
	default:
		return "unknown"
	}
}

// CommandDispatcher routes parsed voice commands onto the answer ledger and
// attempt lifecycle. It performs no scoring itself; the real state lives in
// Answer.Finalized and ExamAttempt.Status.
type CommandDispatcher struct {
	ledger   *LedgerService
	attempts *AttemptService
}

// NewCommandDispatcher creates a new CommandDispatcher.
func NewCommandDispatcher(ledger *LedgerService, attempts *AttemptService) *CommandDispatcher {
	return &CommandDispatcher{ledger: ledger, attempts: attempts}
}

// DispatchResult carries the outcome of whichever action the command mapped
// to. Exactly one of Finalize and Completion is set.
type DispatchResult struct {
	Command    Command
	Finalize   *FinalizeResult
	Completion *CompletionResult
}

// Dispatch parses the raw phrase and executes the mapped action. An unknown
// phrase returns ErrUnknownCommand before any state is touched.
func (d *CommandDispatcher) Dispatch(ctx context.Context, callerID int, attemptID, questionID uuid.UUID, raw string, spokenText *string) (*DispatchResult, error) {
	cmd, err := ParseCommand(raw)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Command: cmd}
	switch cmd {
	case CommandSkip:
		result.Finalize, err = d.ledger.Skip(ctx, callerID, attemptID, questionID)
	case CommandMoveNext:
		result.Finalize, err = d.ledger.MoveNext(ctx, callerID, attemptID, questionID, spokenText)
	case CommandEndExam:
		result.Completion, err = d.attempts.Complete(ctx, callerID, attemptID)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
